package http

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/englishlessons/lessons-hub/internal/application/command"
	"github.com/englishlessons/lessons-hub/internal/application/query"
	"github.com/englishlessons/lessons-hub/internal/domain/ranking"
	"github.com/englishlessons/lessons-hub/internal/domain/result"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
	"github.com/englishlessons/lessons-hub/pkg/logger"
	"github.com/englishlessons/lessons-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth returns detailed health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, r, http.StatusOK, map[string]any{
			"status":  "healthy",
			"message": "Health checker not configured",
			"uptime":  s.Uptime().Round(time.Second).String(),
			"version": s.deps.Version,
		})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status)
}

// handleReady reports whether critical dependencies are reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, r, http.StatusOK, map[string]bool{"ready": true})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSONError(w, r, http.StatusServiceUnavailable, "not_ready", status.Message, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"ready": true})
}

// handleLive is the liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]bool{"alive": true})
}

// ══════════════════════════════════════════════════════════════════════════════
// RESULTS
// ══════════════════════════════════════════════════════════════════════════════

// SubmitResultRequest is the body of POST /api/v1/results/submit.
type SubmitResultRequest struct {
	LessonNumber *int `json:"lesson_number" validate:"required,min=1"`
	Score        *int `json:"score" validate:"required,score"`
}

// ResultRecordView is the ledger record returned after a submission.
type ResultRecordView struct {
	StudentID       string    `json:"student_id"`
	LessonNumber    int       `json:"lesson_number"`
	BestScore       int       `json:"best_score"`
	AttemptCount    int       `json:"attempt_count"`
	LastSubmittedAt time.Time `json:"last_submitted_at"`
}

func newResultRecordView(rec result.Record) ResultRecordView {
	return ResultRecordView{
		StudentID:       rec.StudentID.String(),
		LessonNumber:    rec.LessonNumber,
		BestScore:       rec.BestScore,
		AttemptCount:    rec.Attempts,
		LastSubmittedAt: rec.LastSubmittedAt.UTC(),
	}
}

// handleSubmitResult records one lesson attempt of the caller.
func (s *Server) handleSubmitResult(w http.ResponseWriter, r *http.Request) {
	var req SubmitResultRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	rec, err := s.deps.SubmitResult.Handle(r.Context(), command.SubmitResultCommand{
		Caller:       callerFrom(r.Context()),
		LessonNumber: *req.LessonNumber,
		Score:        *req.Score,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newResultRecordView(rec))
}

// ResultEntryView is one row of the result journal.
type ResultEntryView struct {
	ResultRecordView
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	Role        string `json:"role"`
	Level       *int   `json:"level"`
	LevelLetter string `json:"level_letter,omitempty"`
}

// handleListResults returns journal entries, most recent submission first.
func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	filter, details := parseResultFilter(r)
	if details != nil {
		writeJSONError(w, r, http.StatusBadRequest, "validation_error", "Invalid query parameters", details)
		return
	}

	entries, err := s.deps.ListResults.Handle(r.Context(), query.ListResultsQuery{
		Caller: callerFrom(r.Context()),
		Filter: filter,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	views := make([]ResultEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, ResultEntryView{
			ResultRecordView: newResultRecordView(e.Record),
			Username:         e.Username,
			FullName:         e.FullName,
			Role:             e.Role,
			Level:            e.Level,
			LevelLetter:      e.Letter,
		})
	}

	writeJSONWithMeta(w, r, http.StatusOK, views, &ResponseMeta{TotalCount: len(views)})
}

func parseResultFilter(r *http.Request) (result.ListFilter, map[string]string) {
	q := r.URL.Query()
	details := map[string]string{}

	var filter result.ListFilter
	filter.Level = parseLevelParam(q.Get("level"), details)
	filter.Letter = strings.TrimSpace(q.Get("level_letter"))
	filter.CompletedOn = parseDateParam("completed_date", q.Get("completed_date"), details)
	filter.CompletedFrom = parseDateParam("completed_from", q.Get("completed_from"), details)
	filter.CompletedTo = parseDateParam("completed_to", q.Get("completed_to"), details)

	if raw := strings.TrimSpace(q.Get("student_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			details["student_id"] = "must be a valid UUID"
		} else {
			filter.StudentID = &id
		}
	}

	if len(details) > 0 {
		return result.ListFilter{}, details
	}
	return filter, nil
}

func parseLevelParam(raw string, details map[string]string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	level, err := strconv.Atoi(raw)
	if err != nil || level < student.MinLevel || level > student.MaxLevel {
		details["level"] = "must be an integer between 1 and 11"
		return 0
	}
	return level
}

func parseDateParam(name, raw string, details map[string]string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := timeutil.ParseDate(raw)
	if err != nil {
		details[name] = "must be a date in YYYY-MM-DD format"
		return nil
	}
	return &t
}

// ══════════════════════════════════════════════════════════════════════════════
// USERS
// ══════════════════════════════════════════════════════════════════════════════

// ProfileView describes an account.
type ProfileView struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Level        *int   `json:"level"`
	LevelLetter  string `json:"level_letter"`
	ClassDisplay string `json:"class_display"`
}

func newProfileView(s *student.Student) ProfileView {
	return ProfileView{
		ID:           s.ID.String(),
		Username:     s.Username,
		FirstName:    s.FirstName,
		LastName:     s.LastName,
		Email:        s.Email,
		Role:         s.Role().String(),
		Level:        s.Level(),
		LevelLetter:  s.Letter(),
		ClassDisplay: s.ClassDisplay(),
	}
}

// handleMe returns the caller's profile.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, newProfileView(callerFrom(r.Context())))
}

// StudentListItem is one row of the teacher's student list.
type StudentListItem struct {
	ProfileView
	FullName string `json:"full_name"`
}

// handleListStudents lists students for teachers.
func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	details := map[string]string{}
	filter := student.ListFilter{
		FirstName: strings.TrimSpace(q.Get("first_name")),
		LastName:  strings.TrimSpace(q.Get("last_name")),
		Level:     parseLevelParam(q.Get("level"), details),
		Letter:    strings.TrimSpace(q.Get("level_letter")),
	}
	if len(details) > 0 {
		writeJSONError(w, r, http.StatusBadRequest, "validation_error", "Invalid query parameters", details)
		return
	}

	list, err := s.deps.ListStudents.Handle(r.Context(), query.ListStudentsQuery{
		Caller: callerFrom(r.Context()),
		Filter: filter,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	items := make([]StudentListItem, 0, len(list))
	for _, st := range list {
		items = append(items, StudentListItem{ProfileView: newProfileView(st), FullName: st.FullName()})
	}
	writeJSONWithMeta(w, r, http.StatusOK, items, &ResponseMeta{TotalCount: len(items)})
}

// CreateStudentRequest is the body of POST /api/v1/users/students.
type CreateStudentRequest struct {
	Username        string `json:"username" validate:"required,notblank,max=150"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	FirstName       string `json:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" validate:"max=150"`
	Email           string `json:"email" validate:"omitempty,email"`
	Level           *int   `json:"level" validate:"required,min=1,max=11"`
	LevelLetter     string `json:"level_letter" validate:"required,classletter"`
}

// CreateStudentResponse confirms a created account.
type CreateStudentResponse struct {
	Detail   string `json:"detail"`
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Class    string `json:"class"`
}

// handleCreateStudent creates a student account on behalf of a teacher.
func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	acc, err := s.deps.CreateAccount.CreateStudent(r.Context(), command.CreateStudentCommand{
		Caller:          callerFrom(r.Context()),
		Username:        req.Username,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Level:           req.Level,
		Letter:          req.LevelLetter,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, CreateStudentResponse{
		Detail:   "Student created",
		ID:       acc.ID.String(),
		Username: acc.Username,
		FullName: acc.FullName(),
		Class:    acc.ClassDisplay(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS
// ══════════════════════════════════════════════════════════════════════════════

// LessonDetailView is one lesson in the stats breakdown.
type LessonDetailView struct {
	LessonNumber    int       `json:"lesson_number"`
	BestScore       int       `json:"best_score"`
	AttemptCount    int       `json:"attempt_count"`
	LastSubmittedAt time.Time `json:"last_submitted_at"`
}

// StudentStatsView is the stats payload.
type StudentStatsView struct {
	StudentID        string             `json:"student_id"`
	Username         string             `json:"username"`
	FullName         string             `json:"full_name"`
	TotalPoints      int                `json:"total_points"`
	CompletedLessons int                `json:"completed_lessons"`
	AverageScore     float64            `json:"average_score"`
	RankInClass      int                `json:"rank_in_class"`
	ClassSize        int                `json:"class_size"`
	Class            string             `json:"class"`
	LessonsDetail    []LessonDetailView `json:"lessons_detail"`
}

func newStudentStatsView(st *student.Student, stats ranking.Stats) StudentStatsView {
	view := StudentStatsView{
		StudentID:        st.ID.String(),
		Username:         st.Username,
		FullName:         st.FullName(),
		TotalPoints:      stats.TotalPoints,
		CompletedLessons: stats.CompletedLessons,
		AverageScore:     stats.AverageScore,
		RankInClass:      stats.RankInClass,
		ClassSize:        stats.ClassSize,
		Class:            stats.ClassLabel,
		LessonsDetail:    make([]LessonDetailView, 0, len(stats.Lessons)),
	}
	for _, l := range stats.Lessons {
		view.LessonsDetail = append(view.LessonsDetail, LessonDetailView{
			LessonNumber:    l.LessonNumber,
			BestScore:       l.BestScore,
			AttemptCount:    l.Attempts,
			LastSubmittedAt: l.LastSubmittedAt.UTC(),
		})
	}
	return view
}

// handleMyStats returns the caller's own stats.
func (s *Server) handleMyStats(w http.ResponseWriter, r *http.Request) {
	s.writeStats(w, r, nil)
}

// handleStudentStats returns the stats of the student in the path.
func (s *Server) handleStudentStats(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, r, http.StatusBadRequest, "validation_error", "Invalid student id",
			map[string]string{"id": "must be a valid UUID"})
		return
	}
	s.writeStats(w, r, &id)
}

func (s *Server) writeStats(w http.ResponseWriter, r *http.Request, target *uuid.UUID) {
	res, err := s.deps.StudentStats.Handle(r.Context(), query.GetStudentStatsQuery{
		Caller:   callerFrom(r.Context()),
		TargetID: target,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newStudentStatsView(res.Student, res.Stats))
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardEntryView is one row of a class leaderboard.
type LeaderboardEntryView struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	FullName     string `json:"full_name"`
	ClassDisplay string `json:"class_display"`
	TotalPoints  int    `json:"total_points"`
	Rank         int    `json:"rank"`
}

// LeaderboardView is the class leaderboard payload.
type LeaderboardView struct {
	Class   string                 `json:"class"`
	Entries []LeaderboardEntryView `json:"entries"`
}

// handleClassLeaderboard returns a class ordered by total points.
// Students get their own class; teachers pass level and level_letter.
func (s *Server) handleClassLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	details := map[string]string{}
	level := parseLevelParam(q.Get("level"), details)
	if len(details) > 0 {
		writeJSONError(w, r, http.StatusBadRequest, "validation_error", "Invalid query parameters", details)
		return
	}

	board, err := s.deps.ClassLeaderboard.Handle(r.Context(), query.GetClassLeaderboardQuery{
		Caller: callerFrom(r.Context()),
		Level:  level,
		Letter: strings.TrimSpace(q.Get("level_letter")),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	view := LeaderboardView{
		Class:   board.Class.Display(),
		Entries: make([]LeaderboardEntryView, 0, len(board.Rows)),
	}
	for _, row := range board.Rows {
		view.Entries = append(view.Entries, LeaderboardEntryView{
			UserID:       row.Student.ID.String(),
			Username:     row.Student.Username,
			FullName:     row.Student.FullName(),
			ClassDisplay: row.Student.ClassDisplay(),
			TotalPoints:  row.TotalPoints,
			Rank:         row.Rank,
		})
	}
	writeJSONWithMeta(w, r, http.StatusOK, view, &ResponseMeta{TotalCount: len(view.Entries)})
}

// ══════════════════════════════════════════════════════════════════════════════
// REPORTS
// ══════════════════════════════════════════════════════════════════════════════

// utf8BOM makes spreadsheet apps read Cyrillic text in the CSV correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var exportHeader = []string{
	"ID", "Логин", "Имя", "Фамилия", "Класс", "Всего баллов", "Пройдено уроков",
	"Средний балл", "Место в классе", "Всего попыток",
}

// handleExportStats streams one CSV row per student. Teachers only.
func (s *Server) handleExportStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	details := map[string]string{}
	level := parseLevelParam(q.Get("level"), details)
	if len(details) > 0 {
		writeJSONError(w, r, http.StatusBadRequest, "validation_error", "Invalid query parameters", details)
		return
	}

	rows, err := s.deps.ExportStats.Handle(r.Context(), query.ExportStatsQuery{
		Caller: callerFrom(r.Context()),
		Level:  level,
		Letter: strings.TrimSpace(q.Get("level_letter")),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	filename := "students_stats_" + time.Now().UTC().Format(timeutil.FormatDateCompact) + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(utf8BOM)

	cw := csv.NewWriter(w)
	_ = cw.Write(exportHeader)
	for _, row := range rows {
		_ = cw.Write([]string{
			row.Student.ID.String(),
			row.Student.Username,
			row.Student.FirstName,
			row.Student.LastName,
			row.Stats.ClassLabel,
			strconv.Itoa(row.Stats.TotalPoints),
			strconv.Itoa(row.Stats.CompletedLessons),
			strconv.FormatFloat(row.Stats.AverageScore, 'f', 2, 64),
			strconv.Itoa(row.Stats.RankInClass),
			strconv.Itoa(row.TotalAttempts),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		logger.FromContext(r.Context()).Warn("stats export interrupted", logger.Err(err))
	}
}

// LessonAnalyticsView is one lesson of the class analytics.
type LessonAnalyticsView struct {
	LessonNumber     int     `json:"lesson_number"`
	CompletedCount   int     `json:"completed_count"`
	CompletionRate   float64 `json:"completion_rate"`
	AverageBestScore float64 `json:"average_best_score"`
	TopScore         int     `json:"top_score"`
	TotalAttempts    int     `json:"total_attempts"`
}

// ClassInfoView identifies the class of an analytics report.
type ClassInfoView struct {
	Level         int    `json:"level"`
	LevelLetter   string `json:"level_letter"`
	Label         string `json:"label"`
	TotalStudents int    `json:"total_students"`
}

// ClassTotalsView holds the class-wide totals.
type ClassTotalsView struct {
	ActiveStudents   int     `json:"active_students"`
	TotalPoints      int     `json:"total_points"`
	CompletedLessons int     `json:"completed_lessons"`
	AverageScore     float64 `json:"average_score"`
	TotalAttempts    int     `json:"total_attempts"`
}

// ClassAnalyticsView is the class analytics payload.
type ClassAnalyticsView struct {
	ClassInfo    ClassInfoView         `json:"class_info"`
	OverallStats ClassTotalsView       `json:"overall_stats"`
	LessonsStats []LessonAnalyticsView `json:"lessons_stats"`
}

// handleClassAnalytics returns per-lesson aggregates of a class. Teachers
// pass level and optionally level_letter.
func (s *Server) handleClassAnalytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	details := map[string]string{}
	level := parseLevelParam(q.Get("level"), details)
	if level == 0 && len(details) == 0 {
		details["level"] = "is required"
	}
	if len(details) > 0 {
		writeJSONError(w, r, http.StatusBadRequest, "validation_error", "Invalid query parameters", details)
		return
	}

	res, err := s.deps.ClassAnalytics.Handle(r.Context(), query.GetClassAnalyticsQuery{
		Caller: callerFrom(r.Context()),
		Level:  level,
		Letter: strings.TrimSpace(q.Get("level_letter")),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	view := ClassAnalyticsView{
		ClassInfo: ClassInfoView{
			Level:         res.Level,
			LevelLetter:   res.Letter,
			Label:         res.Label,
			TotalStudents: res.TotalStudents,
		},
		OverallStats: ClassTotalsView{
			ActiveStudents:   res.ActiveStudents,
			TotalPoints:      res.TotalPoints,
			CompletedLessons: res.CompletedLessons,
			AverageScore:     res.AverageScore,
			TotalAttempts:    res.TotalAttempts,
		},
		LessonsStats: make([]LessonAnalyticsView, 0, len(res.Lessons)),
	}
	for _, l := range res.Lessons {
		view.LessonsStats = append(view.LessonsStats, LessonAnalyticsView(l))
	}
	writeJSON(w, r, http.StatusOK, view)
}
