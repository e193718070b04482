// handlers.go implements the HTTP handlers. Automation failures surface as
// task state, never HTTP errors; only malformed requests and unknown ids get
// non-2xx responses.
package main

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
)

// RunRequest selects a job kind and its kind-specific parameters.
type RunRequest struct {
	Intent string          `json:"intent"`
	Args   json.RawMessage `json:"args"`
}

func (s *Server) healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// runJob dispatches a submission. Unknown intents get a descriptive payload
// with a 200, matching the contract that only malformed requests are HTTP
// errors.
func (s *Server) runJob(c *fiber.Ctx) error {
	var req RunRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_body",
			Message: err.Error(),
		})
	}

	kind, ok := jobKinds[req.Intent]
	if !ok {
		return c.JSON(fiber.Map{
			"status":  "unsupported_intent",
			"intent":  req.Intent,
			"message": "supported intents: collect_amazon_products, generate_personas, discover_trends",
		})
	}

	params := kind.NewParams()
	if len(req.Args) > 0 {
		if err := json.Unmarshal(req.Args, params); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error:   "invalid_args",
				Message: err.Error(),
			})
		}
	}
	if err := params.validate(s.cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_args",
			Message: err.Error(),
		})
	}

	id, outcome := s.runner.Submit(kind, params)
	if outcome == nil {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"status":  "started",
			"task_id": id,
		})
	}

	return c.JSON(outcomeResponse{TaskID: id, RunOutcome: outcome})
}

// outcomeResponse flattens a terminal outcome alongside the task id.
type outcomeResponse struct {
	TaskID string `json:"task_id"`
	*RunOutcome
}

func (s *Server) getProgress(c *fiber.Ctx) error {
	snap, err := s.reg.Progress(c.Params("id"))
	if err != nil {
		return notFound(c)
	}
	return c.JSON(snap)
}

func (s *Server) getResult(c *fiber.Ctx) error {
	outcome, err := s.reg.Result(c.Params("id"))
	if err != nil {
		// Unknown id and not-yet-terminal both read as 404; the id is
		// the bearer token, so nothing more is disclosed.
		return notFound(c)
	}
	return c.JSON(outcomeResponse{TaskID: c.Params("id"), RunOutcome: outcome})
}

// stopTask requests cooperative cancellation. Stopping an already-finished
// task reports stopped=false with a 200; only a never-issued id is a 404.
func (s *Server) stopTask(c *fiber.Ctx) error {
	stopped, err := s.reg.RequestCancel(c.Params("id"))
	if err != nil {
		if errors.Is(err, errNotFound) {
			return notFound(c)
		}
		return err
	}
	return c.JSON(fiber.Map{
		"task_id": c.Params("id"),
		"stopped": stopped,
	})
}

func (s *Server) stopAll(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"stopped": s.reg.CancelAll(),
	})
}

func (s *Server) listTasks(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"tasks": s.reg.ListRunning(),
	})
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
		Error:   "not_found",
		Message: "unknown task id",
	})
}
