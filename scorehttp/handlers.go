package scorehttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/google/uuid"
	"github.com/programme-lv/scorer/auth"
	"github.com/programme-lv/scorer/httpjson"
	"github.com/programme-lv/scorer/scoresrvc"
	"github.com/programme-lv/scorer/scoring"
	"github.com/programme-lv/scorer/srvcerror"
)

func (httpserver *HttpServer) listScoreTypes(w http.ResponseWriter, r *http.Request) {
	httpjson.WriteSuccessJson(w, scoring.PolicyNames())
}

func (httpserver *HttpServer) computeScore(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	var request scoresrvc.ComputeRequest
	if err := httpjson.ReadJson(r, &request); err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	report, err := httpserver.scoreSrvc.Compute(r.Context(), request)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, report)
}

func (httpserver *HttpServer) getSubmScore(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	submUuid, err := parseUuidParam(r, "submUuid")
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	private := false
	if claims := auth.ClaimsFromContext(r.Context()); claims.HasScope(auth.ScopePrivateScores) {
		private = true
	} else if claims != nil {
		author, err := httpserver.scoreSrvc.SubmAuthor(r.Context(), submUuid)
		if err != nil {
			httpjson.HandleError(logger, w, err)
			return
		}
		private = claims.CanViewPrivate(author)
	}

	view, err := httpserver.scoreSrvc.GetReport(r.Context(), submUuid, private)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, view)
}

func (httpserver *HttpServer) rescoreSubm(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	if !auth.ClaimsFromContext(r.Context()).HasScope(auth.ScopeAdmin) {
		httpjson.HandleError(logger, w, srvcerror.ErrForbidden())
		return
	}

	submUuid, err := parseUuidParam(r, "submUuid")
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	report, err := httpserver.scoreSrvc.ScoreSubm(r.Context(), submUuid)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, report)
}

func (httpserver *HttpServer) getTaskMaxScores(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	info, err := httpserver.scoreSrvc.TaskMaxScores(r.Context(), chi.URLParam(r, "taskId"))
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, info)
}

func (httpserver *HttpServer) rescoreTask(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	if !auth.ClaimsFromContext(r.Context()).HasScope(auth.ScopeAdmin) {
		httpjson.HandleError(logger, w, srvcerror.ErrForbidden())
		return
	}

	type rescoreResponse struct {
		TaskID   string `json:"task_id"`
		Rescored int    `json:"rescored"`
	}

	taskId := chi.URLParam(r, "taskId")
	n, err := httpserver.scoreSrvc.RescoreTask(r.Context(), taskId)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, rescoreResponse{TaskID: taskId, Rescored: n})
}

func (httpserver *HttpServer) getUserScoreboard(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	userUuid, err := parseUuidParam(r, "userUuid")
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	private := auth.ClaimsFromContext(r.Context()).CanViewPrivate(userUuid)

	row, err := httpserver.scoreSrvc.UserScoreboard(r.Context(), userUuid, private)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, row)
}

func parseUuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, srvcerror.ErrInvalidRequest("nederīgs " + name).SetDebug(err)
	}
	return id, nil
}
