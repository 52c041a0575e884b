package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"meetingrec/internal/app"
	"meetingrec/internal/dashboard"
	"meetingrec/internal/domain"
	"meetingrec/internal/services"
	"meetingrec/internal/session"
	"meetingrec/internal/storage"
)

type API struct {
	app *app.App
}

func NewAPI(a *app.App) *API {
	return &API{app: a}
}

func registerRoutes(r *gin.Engine, api *API) {
	r.GET("/", api.handleDashboard)
	r.POST("/record/start", api.handleStartPage)
	r.POST("/record/stop", api.handleStopPage)
	r.GET("/recordings/:name", api.handleServeRecording)
	r.GET("/report.pdf", api.handleReport)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", api.handleHealth)

		apiGroup.GET("/recordings", api.handleListRecordings)
		apiGroup.GET("/session", api.handleSession)
		apiGroup.POST("/record/start", api.handleStart)
		apiGroup.POST("/record/stop", api.handleStop)

		apiGroup.GET("/meetings", api.handleListMeetings)
		apiGroup.GET("/meetings/:id", api.handleGetMeeting)
	}
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) handleDashboard(c *gin.Context) {
	st := sessionState(c)
	notices := st.TakeNotices()

	recordings, err := a.app.Recordings.List()
	if err != nil {
		a.app.Log.Error().Err(err).Msg("list recordings")
		notices = append(notices, session.Notice{Level: session.LevelError, Text: fmt.Sprintf("Could not list recordings: %v", err)})
	}

	view := dashboard.Build(st.Snapshot(), notices, recordings, a.app.Meetings.AnalyzedRecordings())
	c.HTML(http.StatusOK, "index.html", view)
}

func (a *API) handleStartPage(c *gin.Context) {
	// failures are already queued as notices on the session
	_, _ = a.app.Meeting.Start(sessionState(c))
	c.Redirect(http.StatusSeeOther, "/")
}

// processingContext keeps the save, transcribe and analyze chain running when
// the client disconnects or reloads mid-request.
func processingContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func (a *API) handleStopPage(c *gin.Context) {
	_, _ = a.app.Meeting.Stop(processingContext(c), sessionState(c))
	c.Redirect(http.StatusSeeOther, "/")
}

func (a *API) handleServeRecording(c *gin.Context) {
	path, err := a.app.Recordings.Path(c.Param("name"))
	if err != nil {
		respondMessage(c, http.StatusNotFound, "recording not found")
		return
	}

	c.Header("Content-Type", "audio/wav")
	c.File(path)
}

func (a *API) handleReport(c *gin.Context) {
	snap := sessionState(c).Snapshot()
	if snap.LastAnalysis == nil {
		respondMessage(c, http.StatusNotFound, "no analysis available")
		return
	}

	report := services.Report{
		Recording:  snap.LastRecording,
		CreatedAt:  time.Now(),
		Transcript: snap.LastTranscript,
		Analysis:   *snap.LastAnalysis,
	}
	if ts, _, ok := storage.ParseRecordingName(snap.LastRecording); ok {
		report.CreatedAt = ts
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `attachment; filename="meeting-report.pdf"`)
	if err := a.app.PDF.Render(c.Writer, report); err != nil {
		a.app.Log.Error().Err(err).Msg("render report")
		c.Status(http.StatusInternalServerError)
	}
}

func (a *API) handleListRecordings(c *gin.Context) {
	recordings, err := a.app.Recordings.List()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recordings)
}

func (a *API) handleSession(c *gin.Context) {
	st := sessionState(c)
	c.JSON(http.StatusOK, gin.H{
		"session": st.Snapshot(),
		"notices": nonNil(st.TakeNotices()),
	})
}

func (a *API) handleStart(c *gin.Context) {
	st := sessionState(c)
	started, err := a.app.Meeting.Start(st)
	if err != nil {
		respondDomainError(c, st, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"started": started,
		"session": st.Snapshot(),
		"notices": nonNil(st.TakeNotices()),
	})
}

func (a *API) handleStop(c *gin.Context) {
	st := sessionState(c)
	result, err := a.app.Meeting.Stop(processingContext(c), st)
	if errors.Is(err, services.ErrNothingRecording) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   services.NoticeNothingRecording,
			"notices": nonNil(st.TakeNotices()),
		})
		return
	}
	if err != nil {
		respondDomainError(c, st, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":  result,
		"notices": nonNil(st.TakeNotices()),
	})
}

func (a *API) handleListMeetings(c *gin.Context) {
	c.JSON(http.StatusOK, a.app.Meetings.ListMeetings())
}

func (a *API) handleGetMeeting(c *gin.Context) {
	meeting, err := a.app.Meetings.GetMeeting(c.Param("id"))
	if err != nil {
		respondMessage(c, http.StatusNotFound, "meeting not found")
		return
	}
	c.JSON(http.StatusOK, meeting)
}

func respondDomainError(c *gin.Context, st *session.State, err error) {
	status := http.StatusInternalServerError
	body := gin.H{"error": err.Error()}

	var derr *domain.Error
	if errors.As(err, &derr) {
		status = derr.HTTPStatus()
		body["kind"] = derr.Kind
		body["recoverable"] = derr.Recoverable()
	}
	body["session"] = st.Snapshot()
	body["notices"] = nonNil(st.TakeNotices())
	c.JSON(status, body)
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var derr *domain.Error
	if errors.As(err, &derr) {
		status = derr.HTTPStatus()
	}
	respondMessage(c, status, err.Error())
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func nonNil(notices []session.Notice) []session.Notice {
	if notices == nil {
		return []session.Notice{}
	}
	return notices
}
