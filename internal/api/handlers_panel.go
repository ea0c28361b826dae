// handlers_panel.go - Upload panel event handlers
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/smart-extractor/backend/internal/filesource"
	"github.com/smart-extractor/backend/internal/models"
	"github.com/smart-extractor/backend/internal/panel"
	"github.com/smart-extractor/backend/internal/session"
	"github.com/vmihailenco/msgpack/v5"
)

// filesField is the multipart field the page uses for dropped or picked files.
const filesField = "files"

// PanelHandlerImpl implements the PanelHandler interface
type PanelHandlerImpl struct {
	sessions SessionManager
	logger   *slog.Logger
}

// NewPanelHandler creates a new panel handler instance
func NewPanelHandler(sessions SessionManager, logger *slog.Logger) PanelHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PanelHandlerImpl{
		sessions: sessions,
		logger:   logger,
	}
}

// HandleCreatePanel starts a new panel session
func (h *PanelHandlerImpl) HandleCreatePanel(c echo.Context) error {
	state := h.sessions.Create()
	return c.JSON(http.StatusCreated, panelResponse{
		ID:   state.ID,
		View: state.Panel.View(),
	})
}

// HandleGetPanel returns the current view of a panel
func (h *PanelHandlerImpl) HandleGetPanel(c echo.Context) error {
	state, err := h.lookup(c)
	if err != nil {
		return err
	}
	return h.respondView(c, state)
}

// HandleDeletePanel drops a panel session
func (h *PanelHandlerImpl) HandleDeletePanel(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}
	if !h.sessions.Delete(id) {
		return NewNotFoundError("panel", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleDrag applies dragenter, dragover, dragleave or drop to the highlight
func (h *PanelHandlerImpl) HandleDrag(c echo.Context) error {
	state, err := h.lookup(c)
	if err != nil {
		return err
	}

	var req dragRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	kind, err := panel.ParseDragKind(req.Type)
	if err != nil {
		return NewBadRequestError("invalid drag event", err)
	}

	state.Panel.Drag(kind)
	return h.respondView(c, state)
}

// HandleDrop receives the files of a drop event
func (h *PanelHandlerImpl) HandleDrop(c echo.Context) error {
	state, err := h.lookup(c)
	if err != nil {
		return err
	}

	files, err := h.readFiles(c)
	if err != nil {
		return err
	}

	state.Panel.Drop(files)
	return h.respondView(c, state)
}

// HandlePick receives the files chosen in the file picker
func (h *PanelHandlerImpl) HandlePick(c echo.Context) error {
	state, err := h.lookup(c)
	if err != nil {
		return err
	}

	files, err := h.readFiles(c)
	if err != nil {
		return err
	}

	state.Panel.Pick(files)
	return h.respondView(c, state)
}

// HandleUpload triggers an upload of the selected file.
// The upload runs in the background and reports through the view stream;
// ?wait=true blocks until it settles and returns the final view.
func (h *PanelHandlerImpl) HandleUpload(c echo.Context) error {
	state, err := h.lookup(c)
	if err != nil {
		return err
	}

	p := state.Panel
	if p.SelectedFile() == nil {
		return NewNoFileError(models.NoFileNotice)
	}

	// Uploads are not cancellable: detach from the request lifetime.
	ctx := context.WithoutCancel(c.Request().Context())

	wait, _ := strconv.ParseBool(c.QueryParam("wait"))
	if wait {
		if err := p.Upload(ctx); err != nil {
			return h.uploadError(err)
		}
		return h.respondView(c, state)
	}

	go func() {
		if err := p.Upload(ctx); err != nil {
			h.logger.Warn("panel.upload.rejected", "session_id", state.ID, "error", err)
		}
	}()

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"id":     state.ID,
		"status": "accepted",
	})
}

// HandleDownload serves the current result as extracted.json
func (h *PanelHandlerImpl) HandleDownload(c echo.Context) error {
	state, err := h.lookup(c)
	if err != nil {
		return err
	}

	if err := state.Panel.Download(httpSink{c: c}); err != nil {
		if errors.Is(err, panel.ErrNoResult) {
			return NewNotFoundError("result", state.ID)
		}
		return NewInternalError("failed to build download", err)
	}
	return nil
}

// HandleResultMsgpack returns the current result in MessagePack format
func (h *PanelHandlerImpl) HandleResultMsgpack(c echo.Context) error {
	state, err := h.lookup(c)
	if err != nil {
		return err
	}

	raw := state.Panel.Result()
	if raw == nil {
		return NewNotFoundError("result", state.ID)
	}

	var result interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return NewInternalError("failed to decode result", err)
	}

	view := state.Panel.View()
	data, err := msgpack.Marshal(map[string]interface{}{
		"outcome": string(view.Outcome),
		"result":  result,
	})
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// Request/Response types

type dragRequest struct {
	Type string `json:"type"`
}

type panelResponse struct {
	ID   string      `json:"id"`
	View models.View `json:"view"`
}

// httpSink streams an artifact as an attachment.
type httpSink struct {
	c echo.Context
}

func (s httpSink) Save(a *models.Artifact) error {
	s.c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+a.Name+`"`)
	return s.c.Blob(http.StatusOK, a.MIMEType, a.Content)
}

// Helper functions

func (h *PanelHandlerImpl) lookup(c echo.Context) (*session.State, error) {
	id := c.Param("id")
	if id == "" {
		return nil, NewValidationError("id")
	}
	state, ok := h.sessions.Get(id)
	if !ok {
		return nil, NewNotFoundError("panel", id)
	}
	return state, nil
}

func (h *PanelHandlerImpl) respondView(c echo.Context, state *session.State) error {
	return c.JSON(http.StatusOK, panelResponse{
		ID:   state.ID,
		View: state.Panel.View(),
	})
}

// readFiles returns the files of a multipart body in order. A body that is
// not multipart carries no files.
func (h *PanelHandlerImpl) readFiles(c echo.Context) ([]*models.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, NewBadRequestError("invalid multipart body", err)
	}
	defer form.RemoveAll()

	files, err := filesource.FromMultipart(form.File[filesField])
	if err != nil {
		return nil, NewBadRequestError("failed to read files", err)
	}
	return files, nil
}

func (h *PanelHandlerImpl) uploadError(err error) error {
	if errors.Is(err, panel.ErrNoFile) {
		return NewNoFileError(err.Error())
	}
	return NewInternalError("upload failed", err)
}
