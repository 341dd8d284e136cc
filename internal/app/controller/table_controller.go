package controller

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yorunoba/nightdesk-backend/internal/errors"
	"github.com/yorunoba/nightdesk-backend/internal/middleware"
	"github.com/yorunoba/nightdesk-backend/internal/spreadsheet"
	"github.com/yorunoba/nightdesk-backend/internal/tablebrowser"
)

// TableController exposes the admin table browser. Routes sit behind RequireAdmin.
type TableController struct {
	browser *tablebrowser.Browser
}

func NewTableController(browser *tablebrowser.Browser) *TableController {
	return &TableController{browser: browser}
}

type UpdateRowRequest struct {
	Values map[string]interface{} `json:"values" binding:"required"`
}

const maxBrowsePage = 100000

// browseQuery reads ?page=&search=&filter[column]=value
func browseQuery(c *gin.Context) (tablebrowser.Query, bool) {
	q := tablebrowser.Query{
		Page:    1,
		Filters: c.QueryMap("filter"),
		Search:  c.Query("search"),
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 || page > maxBrowsePage {
			apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "ページ番号が正しくありません")
			return tablebrowser.Query{}, false
		}
		q.Page = page
	}
	return q, true
}

// ListTables
// GET /api/v1/admin/tables
func (ctrl *TableController) ListTables(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tables": ctrl.browser.ListTables()})
}

// Browse
// GET /api/v1/admin/tables/:table?page=&search=&filter[name]=
func (ctrl *TableController) Browse(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	q, ok := browseQuery(c)
	if !ok {
		return
	}

	page, err := ctrl.browser.Browse(c.Request.Context(), actor.StoreID, c.Param("table"), q)
	if err != nil {
		respondError(c, err, "browse table")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetRow
// GET /api/v1/admin/tables/:table/rows/:id
func (ctrl *TableController) GetRow(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	columns, row, err := ctrl.browser.Row(c.Request.Context(), actor.StoreID, c.Param("table"), id)
	if err != nil {
		respondError(c, err, "fetch row")
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns, "row": row})
}

// UpdateRow
// PUT /api/v1/admin/tables/:table/rows/:id
func (ctrl *TableController) UpdateRow(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateRowRequest
	if !bindJSON(c, &req) {
		return
	}

	table := c.Param("table")
	columns, row, err := ctrl.browser.UpdateRow(c.Request.Context(), actor.StoreID, table, id, req.Values)
	if err != nil {
		respondError(c, err, "update row")
		return
	}

	log.Info("Table row updated", map[string]interface{}{
		"table":      table,
		"row_id":     id,
		"columns":    len(req.Values),
		"profile_id": actor.ProfileID,
	})
	c.JSON(http.StatusOK, gin.H{"columns": columns, "row": row})
}

// DeleteRow
// DELETE /api/v1/admin/tables/:table/rows/:id
func (ctrl *TableController) DeleteRow(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	table := c.Param("table")
	if err := ctrl.browser.DeleteRow(c.Request.Context(), actor.StoreID, table, id); err != nil {
		respondError(c, err, "delete row")
		return
	}

	log.Info("Table row deleted", map[string]interface{}{
		"table":      table,
		"row_id":     id,
		"profile_id": actor.ProfileID,
	})
	c.JSON(http.StatusOK, gin.H{"message": "行を削除しました"})
}

// Export downloads the filtered table as CSV
// GET /api/v1/admin/tables/:table/export
func (ctrl *TableController) Export(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	q, ok := browseQuery(c)
	if !ok {
		return
	}

	table := c.Param("table")
	var buf bytes.Buffer
	if err := ctrl.browser.ExportCSV(c.Request.Context(), actor.StoreID, table, q, &buf); err != nil {
		respondError(c, err, "export table")
		return
	}

	filename := fmt.Sprintf("%s_%s.csv", table, time.Now().In(ctrl.browser.Location()).Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, spreadsheet.ContentTypeCSV, buf.Bytes())
}
