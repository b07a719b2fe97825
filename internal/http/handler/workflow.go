package handler

import (
	"github.com/gofiber/fiber/v2"

	"docvault/internal/model"
	"docvault/internal/service"
	"docvault/internal/workflow"
)

// transitionRequest names either the target state or the event to fire.
// Event wins when both are present.
type transitionRequest struct {
	NewState string `json:"new_state"`
	Event    string `json:"event"`
}

type transitionResponse struct {
	NewState string `json:"new_state"`
}

type workflowsResponse struct {
	Default workflow.Definition            `json:"default"`
	Classes map[string]workflow.Definition `json:"classes"`
}

// TransitionWorkflow moves a document to its next workflow state.
//
// @Summary Transition a document
// @Tags workflow
// @Accept json
// @Produce json
// @Param id path string true "document id"
// @Param body body transitionRequest true "new_state or event"
// @Success 200 {object} transitionResponse
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /documents/{id}/workflow [post]
func TransitionWorkflow(svc service.WorkflowService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return invalidID(c)
		}
		var req transitionRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", "malformed request body")
		}

		var (
			doc *model.Document
			err error
		)
		if req.Event != "" {
			doc, err = svc.Transition(c.UserContext(), id, req.Event)
		} else {
			doc, err = svc.TransitionTo(c.UserContext(), id, req.NewState)
		}
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(transitionResponse{NewState: doc.State})
	}
}

// ListWorkflows returns the active transition tables.
//
// @Summary List workflows
// @Tags workflow
// @Produce json
// @Success 200 {object} workflowsResponse
// @Router /workflows [get]
func ListWorkflows(svc service.WorkflowService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		defs := svc.Definitions()
		res := workflowsResponse{Default: defs[""], Classes: make(map[string]workflow.Definition, len(defs))}
		for class, def := range defs {
			if class != "" {
				res.Classes[class] = def
			}
		}
		return c.JSON(res)
	}
}
