package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jmalhotra/filedrive"
	"github.com/jmalhotra/filedrive/auth"
)

// DriveAPI is the drive surface the handlers need.
type DriveAPI interface {
	CreateFolder(ctx context.Context, ownerID uuid.UUID, name string, parentID *uuid.UUID) (filedrive.Folder, error)
	ComposeView(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID) (filedrive.DriveView, error)
	CreateFile(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID, name string, content io.Reader) (filedrive.File, error)
	CreatePlaceholder(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID, name string) (filedrive.File, error)
	GetFile(ctx context.Context, ownerID, fileID uuid.UUID) (filedrive.File, error)
	DeleteFile(ctx context.Context, ownerID, fileID uuid.UUID) error
	DownloadTarget(ctx context.Context, ownerID, fileID uuid.UUID) (filedrive.DownloadInstruction, error)
}

// UserAPI is the account surface the handlers and session middleware need.
type UserAPI interface {
	Register(ctx context.Context, reg filedrive.Registration) (filedrive.User, error)
	Authenticate(ctx context.Context, username, password string) (filedrive.User, error)
	CurrentPrincipal(ctx context.Context, id string) (filedrive.User, error)
}

type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type HandlerConfig struct {
	// MaxUploadSize bounds multipart request bodies in bytes.
	MaxUploadSize int64
	CORS          CORSConfig
}

// Handler provides the HTTP handlers for accounts and the drive.
type Handler struct {
	config   HandlerConfig
	drive    DriveAPI
	users    UserAPI
	sessions *auth.Sessions
	validate *validator.Validate
}

// NewHandler creates a new Handler with the given configuration and services.
func NewHandler(config *HandlerConfig, drive DriveAPI, users UserAPI, sessions *auth.Sessions) *Handler {
	return &Handler{
		config:   *config,
		drive:    drive,
		users:    users,
		sessions: sessions,
		validate: validator.New(),
	}
}

// Router returns an http.Handler with all routes configured. Session
// resolution runs on every request; the drive and file routes additionally
// require a principal and redirect to /log-in without one.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Use(SessionMiddleware(h.users, h.sessions))

	r.Post("/register", h.handleRegister)
	r.Post("/log-in", h.handleLogin)
	r.Get("/log-out", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth)
		r.Get("/drive", h.handleDrive)
		r.Get("/drive/{folderID}", h.handleDrive)
		r.Post("/add-folder", h.handleAddFolder)
		r.Post("/upload", h.handleUpload)
		r.Post("/add-file", h.handleAddFile)
		r.Get("/file/{fileID}", h.handleFileGet)
		r.Get("/file/{fileID}/download", h.handleFileDownload)
		r.Post("/file/{fileID}/delete", h.handleFileDelete)
	})

	return r
}

// registerForm carries the registration fields with their validation rules.
// Names and usernames are alphanumeric, passwords at least five characters
// with a matching confirmation.
type registerForm struct {
	FirstName            string `validate:"required,alphanum"`
	LastName             string `validate:"required,alphanum"`
	Username             string `validate:"required,alphanum"`
	Password             string `validate:"required,min=5"`
	PasswordConfirmation string `validate:"required,eqfield=Password"`
}

// registerFieldNames maps struct fields back to the form field names the
// client posted.
var registerFieldNames = map[string]string{
	"FirstName":            "first_name",
	"LastName":             "last_name",
	"Username":             "username",
	"Password":             "password",
	"PasswordConfirmation": "password_confirmation",
}

func registerFieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "cannot be empty"
	case "alphanum":
		return "must contain only letters and numbers"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", fe.Param())
	case "eqfield":
		return "passwords do not match"
	default:
		return "is invalid"
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Malformed form data")
		return
	}

	form := registerForm{
		FirstName:            r.PostFormValue("first_name"),
		LastName:             r.PostFormValue("last_name"),
		Username:             r.PostFormValue("username"),
		Password:             r.PostFormValue("password"),
		PasswordConfirmation: r.PostFormValue("password_confirmation"),
	}

	if err := h.validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			HandleError(w, err)
			return
		}
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   registerFieldNames[fe.StructField()],
				Message: registerFieldMessage(fe),
			})
		}
		WriteFieldErrors(w, fields)
		return
	}

	_, err := h.users.Register(r.Context(), filedrive.Registration{
		Username:  form.Username,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Password:  form.Password,
	})
	if err != nil {
		if errors.Is(err, filedrive.ErrConflict) {
			WriteError(w, http.StatusConflict, "conflict", "Username is already taken")
			return
		}
		HandleError(w, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Malformed form data")
		return
	}

	user, err := h.users.Authenticate(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, filedrive.ErrUnauthorized) {
			WriteError(w, http.StatusUnauthorized, "unauthorized", "Incorrect username or password")
			return
		}
		HandleError(w, err)
		return
	}

	token, err := h.sessions.Issue(user.ID.String())
	if err != nil {
		HandleError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessions.Validity().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/drive", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleDrive(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	var folderID *uuid.UUID
	if raw := chi.URLParam(r, "folderID"); raw != "" {
		id, err := filedrive.ParseID(raw)
		if err != nil {
			WriteError(w, http.StatusNotFound, "not_found", "Folder not found")
			return
		}
		folderID = &id
	}

	view, err := h.drive.ComposeView(r.Context(), principal.ID, folderID)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, view)
}

// optionalFolderID parses a form-posted folder id. Empty means the drive
// root.
func optionalFolderID(value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := filedrive.ParseID(value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// redirectToFolder sends the client back to the drive level it was acting
// on.
func redirectToFolder(w http.ResponseWriter, r *http.Request, folderID *uuid.UUID) {
	target := "/drive"
	if folderID != nil {
		target = "/drive/" + url.PathEscape(folderID.String())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) handleAddFolder(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	if err := r.ParseForm(); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Malformed form data")
		return
	}

	parentID, err := optionalFolderID(r.PostFormValue("parent_id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_parent", "Invalid parent folder id")
		return
	}

	if _, err := h.drive.CreateFolder(r.Context(), principal.ID, r.PostFormValue("folder_name"), parentID); err != nil {
		HandleError(w, err)
		return
	}

	redirectToFolder(w, r, parentID)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize)
	if err := r.ParseMultipartForm(h.config.MaxUploadSize); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Upload too large or malformed")
		return
	}

	folderID, err := optionalFolderID(r.PostFormValue("folder_id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_parent", "Invalid folder id")
		return
	}

	part, header, err := r.FormFile("user-file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Missing user-file upload field")
		return
	}
	defer func() { _ = part.Close() }()

	if _, err := h.drive.CreateFile(r.Context(), principal.ID, folderID, header.Filename, part); err != nil {
		HandleError(w, err)
		return
	}

	redirectToFolder(w, r, folderID)
}

func (h *Handler) handleAddFile(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	if err := r.ParseForm(); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Malformed form data")
		return
	}

	folderID, err := optionalFolderID(r.PostFormValue("folder_id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_parent", "Invalid folder id")
		return
	}

	if _, err := h.drive.CreatePlaceholder(r.Context(), principal.ID, folderID, r.PostFormValue("file_name")); err != nil {
		HandleError(w, err)
		return
	}

	redirectToFolder(w, r, folderID)
}

func (h *Handler) fileID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := filedrive.ParseID(chi.URLParam(r, "fileID"))
	if err != nil {
		WriteError(w, http.StatusNotFound, "not_found", "File not found")
		return uuid.UUID{}, false
	}
	return id, true
}

func (h *Handler) handleFileGet(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	fileID, ok := h.fileID(w, r)
	if !ok {
		return
	}

	file, err := h.drive.GetFile(r.Context(), principal.ID, fileID)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, file)
}

func (h *Handler) handleFileDownload(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	fileID, ok := h.fileID(w, r)
	if !ok {
		return
	}

	target, err := h.drive.DownloadTarget(r.Context(), principal.ID, fileID)
	if err != nil {
		HandleError(w, err)
		return
	}

	if target.RedirectURL != "" {
		http.Redirect(w, r, target.RedirectURL, http.StatusSeeOther)
		return
	}

	defer func() { _ = target.Content.Close() }()

	w.Header().Set("Content-Type", target.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", target.Name))
	http.ServeContent(w, r, target.Name, time.Time{}, target.Content)
}

func (h *Handler) handleFileDelete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	fileID, ok := h.fileID(w, r)
	if !ok {
		return
	}

	file, err := h.drive.GetFile(r.Context(), principal.ID, fileID)
	if err != nil {
		HandleError(w, err)
		return
	}

	if err := h.drive.DeleteFile(r.Context(), principal.ID, fileID); err != nil {
		HandleError(w, err)
		return
	}

	redirectToFolder(w, r, file.FolderID)
}
