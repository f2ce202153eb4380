package notes

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/studybuddy/core"
)

const (
	// maxSaveAttempts bounds how many times a mutation is re-applied after a version conflict.
	maxSaveAttempts = 3

	noSubjectsMessage = "You have no subjects yet. Create your first subject to start organizing your notes."
)

var (
	// errors
	ErrProfileNotFound = errors.New("user profile not found")
	ErrProfileExists   = errors.New("user profile already exists")
	ErrVersionConflict = errors.New("user profile version conflict")
)

type (
	// ProfileRepository persists whole UserProfile aggregates.
	ProfileRepository interface {
		// GetProfile returns ErrProfileNotFound when the user has no profile.
		GetProfile(ctx context.Context, userID string) (UserProfile, error)
		// CreateProfile returns ErrProfileExists when a profile with the same UUID is stored already.
		CreateProfile(ctx context.Context, profile UserProfile) (UserProfile, error)
		// SaveProfile replaces the stored profile only if its version still equals profile.Version,
		// otherwise it returns ErrVersionConflict. The saved profile carries the bumped version.
		SaveProfile(ctx context.Context, profile UserProfile) (UserProfile, error)
	}

	// ObjectStore durably stores uploaded files and returns their public URL.
	ObjectStore interface {
		Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error)
	}

	Service struct {
		repo          ProfileRepository
		store         ObjectStore // nil when not configured
		uploadTimeout time.Duration
		now           func() time.Time
	}
)

// NewService returns a note-tree Service. store may be nil, in which case file uploads fail with
// core.ErrServiceUnavailable.
func NewService(repo ProfileRepository, store ObjectStore, conf *core.Config) *Service {
	return &Service{
		repo:          repo,
		store:         store,
		uploadTimeout: conf.Storage.UploadTimeout,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// InitProfile creates the empty profile of a newly registered user.
func (svc *Service) InitProfile(ctx context.Context, userID string) error {
	if _, err := svc.repo.CreateProfile(ctx, NewProfile(userID)); err != nil && errors.Cause(err) != ErrProfileExists {
		return errors.Wrap(err, "creating profile")
	}
	return nil
}

// GetProfile returns the user's profile, or an empty one if none exists yet.
func (svc *Service) GetProfile(ctx context.Context, userID string) (UserProfile, error) {
	p, err := svc.repo.GetProfile(ctx, userID)
	if err != nil {
		if errors.Cause(err) == ErrProfileNotFound {
			return NewProfile(userID), nil
		}
		return UserProfile{}, errors.Wrap(err, "getting profile")
	}
	return p, nil
}

func (svc *Service) ListSubjects(ctx context.Context, userID string) (SubjectList, error) {
	p, err := svc.GetProfile(ctx, userID)
	if err != nil {
		return SubjectList{}, err
	}
	if len(p.Subjects) == 0 {
		return SubjectList{HasSubjects: false, Subjects: []Subject{}, Message: noSubjectsMessage}, nil
	}
	return SubjectList{HasSubjects: true, Subjects: p.Subjects}, nil
}

// CreateSubject appends a Subject, creating the profile on first use, and returns all subjects.
// Duplicate names are allowed.
func (svc *Service) CreateSubject(ctx context.Context, userID, name string) ([]Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, requiredFieldError("name", "Subject name is required")
	}

	subj := Subject{ID: uuid.NewString(), Name: name, Chapters: []Chapter{}, CreatedAt: svc.now()}
	p, err := svc.mutate(ctx, userID, true /* upsert */, func(p *UserProfile) error {
		p.Subjects = append(p.Subjects, subj)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "adding subject")
	}
	return p.Subjects, nil
}

// CreateChapter appends a Chapter to the Subject and returns the chapters of that subject.
func (svc *Service) CreateChapter(ctx context.Context, userID, subjectID, name string) ([]Chapter, error) {
	subjectID, name = strings.TrimSpace(subjectID), strings.TrimSpace(name)
	if subjectID == "" {
		return nil, requiredFieldError("subjectId", "Subject ID is required")
	}
	if name == "" {
		return nil, requiredFieldError("name", "Chapter name is required")
	}

	chap := Chapter{ID: uuid.NewString(), Name: name, Notes: []Note{}, CreatedAt: svc.now()}
	var chapters []Chapter
	_, err := svc.mutate(ctx, userID, false, func(p *UserProfile) error {
		subj, ok := p.Subject(subjectID)
		if !ok {
			return core.NewNotFoundError("Subject")
		}
		subj.Chapters = append(subj.Chapters, chap)
		chapters = subj.Chapters
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "adding chapter")
	}
	return chapters, nil
}

// CreateNote appends a Note to the Chapter and returns it along with the chapter's notes.
// A supplied file is uploaded first; the note is only written once the upload succeeded.
func (svc *Service) CreateNote(ctx context.Context, userID string, nn NewNote, file *FileUpload) (Note, []Note, error) {
	nn.clean()
	if err := svc.validateNewNote(nn, file); err != nil {
		return Note{}, nil, err
	}
	if file != nil && svc.store == nil {
		return Note{}, nil, errors.Wrap(core.ErrServiceUnavailable, "object storage is not configured")
	}

	// fail fast on unknown ancestors, before anything gets uploaded
	p, err := svc.repo.GetProfile(ctx, userID)
	if err != nil {
		return Note{}, nil, errors.Wrap(svc.mapProfileErr(err), "getting profile")
	}
	if err := findChapter(&p, nn.SubjectID, nn.ChapterID, func(*Chapter) {}); err != nil {
		return Note{}, nil, err
	}

	now := svc.now()
	note := Note{
		ID:        uuid.NewString(),
		Title:     nn.Title,
		Content:   nn.Content,
		Type:      nn.Type,
		CreatedAt: now,
	}
	if file != nil {
		if note.Title == "" {
			note.Title = baseName(file.Filename)
		}
		url, err := svc.upload(ctx, ObjectName(userID, nn.SubjectID, nn.ChapterID, file.Filename, now), file)
		if err != nil {
			return Note{}, nil, err
		}
		note.FileURL = url
		note.MimeType = file.ContentType
	}

	var notes []Note
	_, err = svc.mutate(ctx, userID, false, func(p *UserProfile) error {
		return findChapter(p, nn.SubjectID, nn.ChapterID, func(chap *Chapter) {
			chap.Notes = append(chap.Notes, note)
			notes = chap.Notes
		})
	})
	if err != nil {
		return Note{}, nil, errors.Wrap(err, "adding note")
	}
	return note, notes, nil
}

func (svc *Service) validateNewNote(nn NewNote, file *FileUpload) error {
	var flds []core.FieldError
	if nn.SubjectID == "" {
		flds = append(flds, core.FieldError{Field: "subjectId", Error: "Subject ID is required"})
	}
	if nn.ChapterID == "" {
		flds = append(flds, core.FieldError{Field: "chapterId", Error: "Chapter ID is required"})
	}
	if nn.Title == "" && file == nil {
		flds = append(flds, core.FieldError{Field: "title", Error: "Note title or file is required"})
	}
	if !nn.Type.IsValid() {
		flds = append(flds, core.FieldError{
			Field: "type",
			Error: fmt.Sprintf("type must be one of %v", NoteTypes),
		})
	}
	if len(flds) > 0 {
		return core.NewValidationError(errors.New(flds[0].Error), flds...)
	}
	return nil
}

func (svc *Service) upload(ctx context.Context, objectName string, file *FileUpload) (string, error) {
	if svc.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, svc.uploadTimeout)
		defer cancel()
	}
	url, err := svc.store.Upload(ctx, objectName, file.ContentType, file.Body)
	if err != nil {
		return "", errors.Wrapf(err, "uploading %q", objectName)
	}
	return url, nil
}

// mutate loads the profile, applies fn and saves it back conditionally on the loaded version.
// On a version conflict, fn is re-applied to a freshly loaded profile.
func (svc *Service) mutate(ctx context.Context, userID string, upsert bool, fn func(p *UserProfile) error) (UserProfile, error) {
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		created := false
		p, err := svc.repo.GetProfile(ctx, userID)
		if err != nil {
			if !(upsert && errors.Cause(err) == ErrProfileNotFound) {
				return UserProfile{}, svc.mapProfileErr(err)
			}
			p, created = NewProfile(userID), true
		}

		if err := fn(&p); err != nil {
			return UserProfile{}, err
		}

		if created {
			p, err = svc.repo.CreateProfile(ctx, p)
			if errors.Cause(err) == ErrProfileExists {
				continue
			}
		} else {
			p, err = svc.repo.SaveProfile(ctx, p)
			if errors.Cause(err) == ErrVersionConflict {
				continue
			}
		}
		if err != nil {
			return UserProfile{}, errors.Wrap(err, "saving profile")
		}
		return p, nil
	}
	return UserProfile{}, core.ErrConflict
}

func (svc *Service) mapProfileErr(err error) error {
	if errors.Cause(err) == ErrProfileNotFound {
		return core.NewNotFoundError("User profile")
	}
	return err
}

func findChapter(p *UserProfile, subjectID, chapterID string, fn func(chap *Chapter)) error {
	subj, ok := p.Subject(subjectID)
	if !ok {
		return core.NewNotFoundError("Subject")
	}
	chap, ok := subj.Chapter(chapterID)
	if !ok {
		return core.NewNotFoundError("Chapter")
	}
	fn(chap)
	return nil
}

func requiredFieldError(field, msg string) error {
	return core.NewValidationError(errors.New(msg), core.FieldError{Field: field, Error: msg})
}

// ObjectName derives the storage name of an uploaded file:
// {userId}/{subjectId}/{chapterId}/{epochMillis}_{filename}.
func ObjectName(userID, subjectID, chapterID, filename string, at time.Time) string {
	return fmt.Sprintf("%s/%s/%s/%d_%s",
		userID, subjectID, chapterID, at.UnixNano()/int64(time.Millisecond), baseName(filename))
}

// baseName strips client directories from an uploaded filename, whether they use / or \ separators.
func baseName(filename string) string {
	return path.Base(strings.ReplaceAll(filename, `\`, "/"))
}
