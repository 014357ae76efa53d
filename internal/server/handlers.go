package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"sqlreport/internal/domain/query"
	"sqlreport/internal/domain/report"
	"sqlreport/internal/domain/table"
	"sqlreport/internal/service"
	"sqlreport/internal/usecase"
)

type listRequest struct {
	Page     int    `query:"page" validate:"gte=0"`
	PageSize int    `query:"page_size" validate:"gte=0,lte=100"`
	Search   string `query:"search" validate:"max=100"`
}

type runRequest struct {
	Params   map[string]interface{} `json:"params"`
	Page     int                    `json:"page" validate:"gte=0"`
	PageSize int                    `json:"page_size" validate:"gte=0"`
}

type exportRequest struct {
	Format string                 `json:"format" validate:"omitempty,oneof=csv csv.gz csv.xz xlsx"`
	Params map[string]interface{} `json:"params"`
}

// createReport handles report creation
func (s *Server) createReport(c echo.Context) error {
	var def report.Definition
	if err := c.Bind(&def); err != nil {
		return badRequest(c, "Invalid request format")
	}

	row, err := s.service.CreateDefinition(c.Request().Context(), def, userOf(c))
	if err != nil {
		return s.fail(c, err, "Failed to create report")
	}
	return c.JSON(http.StatusCreated, row)
}

// listReports handles listing reports
func (s *Server) listReports(c echo.Context) error {
	var req listRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid query parameters")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	list, err := s.service.ListDefinitions(c.Request().Context(), service.ListParams{
		Page:     req.Page,
		PageSize: req.PageSize,
		Search:   req.Search,
	})
	if err != nil {
		return s.fail(c, err, "Failed to list reports")
	}
	return c.JSON(http.StatusOK, list)
}

// getReport handles getting a single report
func (s *Server) getReport(c echo.Context) error {
	row, err := s.service.GetDefinition(c.Request().Context(), c.Param("name"))
	if err != nil {
		return s.fail(c, err, "Failed to get report")
	}
	return c.JSON(http.StatusOK, row)
}

// updateReport replaces a report definition
func (s *Server) updateReport(c echo.Context) error {
	var def report.Definition
	if err := c.Bind(&def); err != nil {
		return badRequest(c, "Invalid request format")
	}

	row, err := s.service.UpdateDefinition(c.Request().Context(), c.Param("name"), def, userOf(c))
	if err != nil {
		return s.fail(c, err, "Failed to update report")
	}
	return c.JSON(http.StatusOK, row)
}

// deleteReport handles report deletion
func (s *Server) deleteReport(c echo.Context) error {
	if err := s.service.DeleteDefinition(c.Request().Context(), c.Param("name")); err != nil {
		return s.fail(c, err, "Failed to delete report")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Report deleted successfully",
	})
}

// runReport builds a report and returns its table
func (s *Server) runReport(c echo.Context) error {
	var req runRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	res, err := s.service.RunReport(c.Request().Context(), c.Param("name"), query.Params(req.Params),
		usecase.Page{Number: req.Page, Size: req.PageSize})
	if err != nil {
		return s.fail(c, err, "Failed to run report")
	}
	return c.JSON(http.StatusOK, res)
}

// countSQL returns the row count template of a report
func (s *Server) countSQL(c echo.Context) error {
	sql, err := s.service.CountSQL(c.Request().Context(), c.Param("name"))
	if err != nil {
		return s.fail(c, err, "Failed to build count query")
	}
	return c.JSON(http.StatusOK, map[string]string{"sql": sql})
}

// createExport queues a report export
func (s *Server) createExport(c echo.Context) error {
	var req exportRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	export, err := s.service.CreateExport(c.Request().Context(), service.ExportRequest{
		Report:      c.Param("name"),
		Format:      req.Format,
		Params:      query.Params(req.Params),
		RequestedBy: userOf(c),
	})
	if err != nil {
		return s.fail(c, err, "Failed to create export")
	}
	return c.JSON(http.StatusAccepted, export)
}

// listExports returns the latest exports of a report
func (s *Server) listExports(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	exports, err := s.service.ListExports(c.Request().Context(), c.Param("name"), limit)
	if err != nil {
		return s.fail(c, err, "Failed to list exports")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"exports": exports,
		"count":   len(exports),
	})
}

func exportID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// getExport returns the export status
func (s *Server) getExport(c echo.Context) error {
	id, err := exportID(c)
	if err != nil {
		return badRequest(c, "Invalid export ID")
	}
	export, err := s.service.GetExport(c.Request().Context(), id)
	if err != nil {
		return s.fail(c, err, "Failed to get export")
	}
	return c.JSON(http.StatusOK, export)
}

// cancelExport cancels a queued or running export
func (s *Server) cancelExport(c echo.Context) error {
	id, err := exportID(c)
	if err != nil {
		return badRequest(c, "Invalid export ID")
	}
	if err := s.service.CancelExport(c.Request().Context(), id); err != nil {
		return s.fail(c, err, "Failed to cancel export")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Export canceled",
	})
}

// downloadExport streams the export file
func (s *Server) downloadExport(c echo.Context) error {
	id, err := exportID(c)
	if err != nil {
		return badRequest(c, "Invalid export ID")
	}

	reader, filename, err := s.service.GetExportFile(c.Request().Context(), id)
	if err != nil {
		return s.fail(c, err, "Failed to get export file")
	}
	defer reader.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Stream(http.StatusOK, table.FormatOf(filename).ContentType(), reader)
}

// exportURL returns a download link for the export file
func (s *Server) exportURL(c echo.Context) error {
	id, err := exportID(c)
	if err != nil {
		return badRequest(c, "Invalid export ID")
	}
	url, err := s.service.GetExportURL(c.Request().Context(), id)
	if err != nil {
		return s.fail(c, err, "Failed to get export URL")
	}
	return c.JSON(http.StatusOK, map[string]string{"download_url": url})
}

func (s *Server) listSchedules(c echo.Context) error {
	entries := s.schedules.Entries()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"schedules": entries,
		"count":     len(entries),
	})
}

func (s *Server) runSchedule(c echo.Context) error {
	export, err := s.schedules.RunNow(c.Request().Context(), c.Param("name"))
	if err != nil {
		return s.fail(c, err, "Failed to run schedule")
	}
	return c.JSON(http.StatusAccepted, export)
}
