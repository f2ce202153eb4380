package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/studybuddy/core"
	"github.com/trezcool/studybuddy/core/notes"
)

type notesApi struct {
	svc *notes.Service
}

func registerNotesAPI(g *echo.Group, auth *authenticator, svc *notes.Service, conf *core.Config) {
	api := notesApi{svc: svc}

	ug := g.Group("/user", auth.middleware)
	ug.GET("/subjects", api.listSubjects)
	ug.POST("/subjects", api.createSubject)
	ug.POST("/chapters", api.createChapter)
	ug.POST("/notes", api.createNote)
	ug.POST("/upload-note-file", api.uploadNoteFile, middleware.BodyLimit(conf.Server.MaxUploadSize))
}

// Handlers

func (api *notesApi) listSubjects(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	list, err := api.svc.ListSubjects(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *notesApi) createSubject(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data NewSubjectRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubjectRequest")
	}

	subjects, err := api.svc.CreateSubject(ctx.Request().Context(), claims.Subject, data.Name)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, SubjectsResponse{Subjects: subjects})
}

func (api *notesApi) createChapter(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data NewChapterRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChapterRequest")
	}

	chapters, err := api.svc.CreateChapter(ctx.Request().Context(), claims.Subject, data.SubjectID, data.Name)
	if err != nil {
		return errors.Wrap(err, "creating chapter")
	}
	return ctx.JSON(http.StatusCreated, ChaptersResponse{Chapters: chapters})
}

func (api *notesApi) createNote(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data NewNoteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNoteRequest")
	}

	_, notesList, err := api.svc.CreateNote(ctx.Request().Context(), claims.Subject, data.toNewNote(), nil)
	if err != nil {
		return errors.Wrap(err, "creating note")
	}
	return ctx.JSON(http.StatusCreated, NotesResponse{Notes: notesList})
}

func (api *notesApi) uploadNoteFile(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	// FormValue ignores parse errors, a body cut short by BodyLimit must still yield a 413
	if _, err := ctx.MultipartForm(); err != nil {
		var herr *echo.HTTPError
		switch {
		case errors.As(err, &herr):
			return herr
		case errors.Is(err, http.ErrNotMultipart):
		default:
			return errors.Wrap(err, "parsing multipart form")
		}
	}
	data := NewNoteRequest{
		SubjectID: ctx.FormValue("subjectId"),
		ChapterID: ctx.FormValue("chapterId"),
		Title:     ctx.FormValue("title"),
		Content:   ctx.FormValue("content"),
		Type:      ctx.FormValue("type"),
	}

	var file *notes.FileUpload
	fh, err := ctx.FormFile("file")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening uploaded file")
		}
		defer f.Close()
		file = &notes.FileUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Size:        fh.Size,
			Body:        f,
		}
	case errors.Cause(err) == http.ErrMissingFile, errors.Cause(err) == http.ErrNotMultipart:
	default:
		return errors.Wrap(err, "reading uploaded file")
	}

	note, notesList, err := api.svc.CreateNote(ctx.Request().Context(), claims.Subject, data.toNewNote(), file)
	if err != nil {
		return errors.Wrap(err, "creating note")
	}
	return ctx.JSON(http.StatusCreated, UploadResponse{FileURL: note.FileURL, Notes: notesList})
}

type (
	NewSubjectRequest struct {
		Name string `json:"name"`
	}

	NewChapterRequest struct {
		SubjectID string `json:"subjectId"`
		Name      string `json:"name"`
	}

	NewNoteRequest struct {
		SubjectID string `json:"subjectId"`
		ChapterID string `json:"chapterId"`
		Title     string `json:"title"`
		Content   string `json:"content"`
		Type      string `json:"type"`
	}

	SubjectsResponse struct {
		Subjects []notes.Subject `json:"subjects"`
	}

	ChaptersResponse struct {
		Chapters []notes.Chapter `json:"chapters"`
	}

	NotesResponse struct {
		Notes []notes.Note `json:"notes"`
	}

	UploadResponse struct {
		FileURL string       `json:"fileUrl,omitempty"`
		Notes   []notes.Note `json:"notes"`
	}
)

func (r NewNoteRequest) toNewNote() notes.NewNote {
	return notes.NewNote{
		SubjectID: r.SubjectID,
		ChapterID: r.ChapterID,
		Title:     r.Title,
		Content:   r.Content,
		Type:      notes.NoteType(r.Type),
	}
}
