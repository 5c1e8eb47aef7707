// handlers_import.go - Dataset import handlers
package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ImportHandlerImpl implements the ImportHandler interface
type ImportHandlerImpl struct {
	imports ImportManager
}

// NewImportHandler creates a new import handler
func NewImportHandler(imports ImportManager) ImportHandler {
	return &ImportHandlerImpl{
		imports: imports,
	}
}

// HandleImport accepts a JSON or YAML dataset (optionally gzip-compressed)
// and starts an async import job.
// Query params: name (label recorded on the job)
func (h *ImportHandlerImpl) HandleImport(c echo.Context) error {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return NewBadRequestError("failed to read request body", err)
	}
	if len(data) == 0 {
		return NewValidationError("body")
	}

	source := strings.TrimSpace(c.QueryParam("name"))
	if source == "" {
		source = "upload"
	}

	job := h.imports.StartJob(source, data)
	return c.JSON(http.StatusAccepted, job)
}

// HandleImportStatus returns the current state of an import job
func (h *ImportHandlerImpl) HandleImportStatus(c echo.Context) error {
	jobID := c.Param("jobId")
	job, ok := h.imports.GetJob(jobID)
	if !ok {
		return NewNotFoundError("import job", jobID)
	}
	return c.JSON(http.StatusOK, job)
}
