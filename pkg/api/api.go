// Package api implements the REST API for evaluating and managing
// expressions.
package api

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/parcelui/expression/pkg/anyexpr"
	"github.com/parcelui/expression/pkg/expression"
	"github.com/parcelui/expression/pkg/store"
)

// Server is the expression service API server.
type Server struct {
	app   *fiber.App
	store *store.Store
}

// New creates a new API server.
func New(s *store.Store) *Server {
	srv := &Server{store: s}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	// One-shot evaluation
	app.Post("/v1/eval", srv.eval)

	// Registered expressions
	app.Post("/v1/expressions", srv.createExpression)
	app.Get("/v1/expressions", srv.listExpressions)
	app.Get("/v1/expressions/:id", srv.getExpression)
	app.Patch("/v1/expressions/:id", srv.updateExpression)
	app.Delete("/v1/expressions/:id", srv.deleteExpression)
	app.Post("/v1/expressions/:id/result", srv.evalExpression)
	app.Get("/v1/expressions/:id/symbols", srv.getSymbols)

	// Parse cache control
	app.Delete("/v1/cache", srv.clearCache)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// --- Evaluation Handlers ---

type evalRequest struct {
	Source    string         `json:"source"`
	Constants map[string]any `json:"constants"`
	Options   *evalOptions   `json:"options"`
}

type evalOptions struct {
	DisableOptimization bool `json:"disableOptimization"`
	PureSymbols         bool `json:"pureSymbols"`
}

func (o *evalOptions) flags() expression.Options {
	if o == nil {
		return 0
	}
	var opts expression.Options
	if o.DisableOptimization {
		opts |= expression.DisableOptimization
	}
	if o.PureSymbols {
		opts |= expression.PureSymbols
	}
	return opts
}

func (s *Server) eval(c *fiber.Ctx) error {
	var req evalRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, 400, "INVALID_ARGUMENT",
			fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Source == "" {
		return errorJSON(c, 400, "INVALID_ARGUMENT", "source is required")
	}
	return s.respondWithResult(c, req.Source, req.Constants, req.Options.flags())
}

func (s *Server) respondWithResult(c *fiber.Ctx, source string, constants map[string]any, opts expression.Options) error {
	expr := anyexpr.New(source, &anyexpr.Config{
		Options:   opts,
		Constants: constants,
	})

	result, err := expr.Evaluate()
	if err != nil {
		return evalErrorJSON(c, err)
	}

	return c.JSON(fiber.Map{
		"source":    expr.String(),
		"result":    result,
		"formatted": anyexpr.FormatValue(result),
	})
}

// --- Expression Handlers ---

type createExpressionRequest struct {
	Source    string         `json:"source"`
	Constants map[string]any `json:"constants"`
}

func (s *Server) createExpression(c *fiber.Ctx) error {
	var req createExpressionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, 400, "INVALID_ARGUMENT",
			fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Source == "" {
		return errorJSON(c, 400, "INVALID_ARGUMENT", "source is required")
	}

	// Validate by parsing; the tree lands in the shared cache so later
	// evaluations reuse it.
	if err := expression.Parse(req.Source).Err(); err != nil {
		return errorJSON(c, 400, "INVALID_ARGUMENT",
			fmt.Sprintf("invalid expression: %v", err))
	}

	expr := s.store.Create(req.Source, req.Constants)
	return c.Status(200).JSON(expressionToJSON(expr))
}

func (s *Server) getExpression(c *fiber.Ctx) error {
	expr, err := s.store.Get(c.Params("id"))
	if err != nil {
		return errorJSON(c, 404, "NOT_FOUND", err.Error())
	}
	return c.JSON(expressionToJSON(expr))
}

func (s *Server) listExpressions(c *fiber.Ctx) error {
	exprs := s.store.List()
	sort.Slice(exprs, func(i, j int) bool {
		return exprs[i].CreateTime.Before(exprs[j].CreateTime)
	})

	items := make([]fiber.Map, len(exprs))
	for i, expr := range exprs {
		items[i] = expressionToJSON(expr)
	}
	return c.JSON(fiber.Map{
		"expressions": items,
	})
}

func (s *Server) updateExpression(c *fiber.Ctx) error {
	var req createExpressionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, 400, "INVALID_ARGUMENT",
			fmt.Sprintf("invalid request body: %v", err))
	}

	if req.Source != "" {
		if err := expression.Parse(req.Source).Err(); err != nil {
			return errorJSON(c, 400, "INVALID_ARGUMENT",
				fmt.Sprintf("invalid expression: %v", err))
		}
	}

	expr, err := s.store.Update(c.Params("id"), req.Source, req.Constants)
	if err != nil {
		return errorJSON(c, 404, "NOT_FOUND", err.Error())
	}
	return c.JSON(expressionToJSON(expr))
}

func (s *Server) deleteExpression(c *fiber.Ctx) error {
	expr, err := s.store.Get(c.Params("id"))
	if err != nil {
		return errorJSON(c, 404, "NOT_FOUND", err.Error())
	}
	if err := s.store.Delete(expr.ID); err != nil {
		return errorJSON(c, 404, "NOT_FOUND", err.Error())
	}
	return c.JSON(fiber.Map{
		"deleted": expr.ID,
	})
}

type evalExpressionRequest struct {
	Constants map[string]any `json:"constants"`
	Options   *evalOptions   `json:"options"`
}

func (s *Server) evalExpression(c *fiber.Ctx) error {
	expr, err := s.store.Get(c.Params("id"))
	if err != nil {
		return errorJSON(c, 404, "NOT_FOUND", err.Error())
	}

	var req evalExpressionRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return errorJSON(c, 400, "INVALID_ARGUMENT",
			fmt.Sprintf("invalid request body: %v", err))
	}

	// Request constants override the stored ones key by key.
	constants := make(map[string]any, len(expr.Constants)+len(req.Constants))
	for k, v := range expr.Constants {
		constants[k] = v
	}
	for k, v := range req.Constants {
		constants[k] = v
	}

	s.store.RecordEval(expr.ID)
	return s.respondWithResult(c, expr.Source, constants, req.Options.flags())
}

func (s *Server) getSymbols(c *fiber.Ctx) error {
	expr, err := s.store.Get(c.Params("id"))
	if err != nil {
		return errorJSON(c, 404, "NOT_FOUND", err.Error())
	}

	parsed := expression.Parse(expr.Source)
	symbols := make([]fiber.Map, 0, len(parsed.Symbols()))
	for sym := range parsed.Symbols() {
		item := fiber.Map{
			"kind": sym.Kind.String(),
			"name": sym.Name,
		}
		if sym.Kind == expression.KindFunction {
			item["arity"] = sym.Arity.String()
		}
		symbols = append(symbols, item)
	}
	sort.Slice(symbols, func(i, j int) bool {
		if symbols[i]["name"] != symbols[j]["name"] {
			return symbols[i]["name"].(string) < symbols[j]["name"].(string)
		}
		return symbols[i]["kind"].(string) < symbols[j]["kind"].(string)
	})

	return c.JSON(fiber.Map{
		"source":  parsed.String(),
		"symbols": symbols,
		"names":   parsed.SymbolNames(),
	})
}

// --- Cache Handlers ---

func (s *Server) clearCache(c *fiber.Ctx) error {
	if source := c.Query("source"); source != "" {
		expression.ClearCacheFor(source)
		return c.JSON(fiber.Map{
			"cleared": source,
		})
	}
	expression.ClearCache()
	return c.JSON(fiber.Map{
		"cleared": "all",
	})
}

// --- Helpers ---

func errorJSON(c *fiber.Ctx, code int, status, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}

// evalErrorJSON maps engine errors onto API statuses. Everything is the
// caller's fault here; the distinctions only help clients tell a bad
// expression from bad inputs.
func evalErrorJSON(c *fiber.Ctx, err error) error {
	var exprErr *expression.Error
	if errors.As(err, &exprErr) && exprErr.Kind == expression.ErrArrayBounds {
		return errorJSON(c, 400, "OUT_OF_RANGE", err.Error())
	}
	var typeErr *anyexpr.TypeError
	if errors.As(err, &typeErr) {
		return errorJSON(c, 400, "FAILED_PRECONDITION", err.Error())
	}
	var capErr *anyexpr.CapacityError
	if errors.As(err, &capErr) {
		return errorJSON(c, 400, "RESOURCE_EXHAUSTED", err.Error())
	}
	return errorJSON(c, 400, "INVALID_ARGUMENT", err.Error())
}

func expressionToJSON(expr *store.Expression) fiber.Map {
	result := fiber.Map{
		"id":         expr.ID,
		"source":     expr.Source,
		"createTime": expr.CreateTime.Format(time.RFC3339),
		"updateTime": expr.UpdateTime.Format(time.RFC3339),
		"evalCount":  expr.EvalCount,
	}
	if expr.Constants != nil {
		result["constants"] = expr.Constants
	}
	return result
}
