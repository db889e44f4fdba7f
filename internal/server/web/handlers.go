package web

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/duplofs/internal/common"
	"github.com/dmitrijs2005/duplofs/internal/server/models"
)

const (
	msgLoginRequired   = "Please log in to access Duplo File Storage."
	msgLoginToDownload = "Please log in to download files."
	msgNoFilePart      = "No file part in the request."
	msgNoFileSelected  = "No file selected."
	msgUploaded        = "File '%s' uploaded successfully!"
	msgUploadFailed    = "An error occurred: %s"
	msgListFailed      = "Error listing files: %s"
	msgDownloadFailed  = "Error downloading file: %s"
	msgUsernameTaken   = "Username already taken. Please choose a different one."
	msgRegistered      = "Registration successful! You can now log in."
	msgRegisterInvalid = "Username and password are required."
	msgRegisterFailed  = "Registration failed. Please try again."
	msgLoggedIn        = "You have successfully logged in."
	msgInvalidLogin    = "Invalid username or password."
	msgLoginFailed     = "Login failed. Please try again."
	msgLoggedOut       = "You have been logged out."
	formFieldFile      = "file"
	formFieldUsername  = "username"
	formFieldPassword  = "password"
)

// index lists the bucket. A listing failure keeps the files read so far and
// shows a notice.
func (s *Server) index(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var files []models.StoredFile
	for f, err := range s.deps.Files.ListFiles(ctx) {
		if err != nil {
			s.logger.Error(ctx, "list files", "error", err)
			s.addFlash(c, fmt.Sprintf(msgListFailed, err))
			break
		}
		files = append(files, f)
	}

	return s.render(c, pageIndex, pageData{
		Title:  "Files",
		Files:  files,
		Bucket: s.deps.Files.Bucket(),
		Region: s.deps.Files.Region(),
	})
}

func (s *Server) upload(c *fiber.Ctx) error {
	ctx := c.UserContext()

	form, err := c.MultipartForm()
	if err != nil {
		s.addFlash(c, msgNoFilePart)
		return c.Redirect("/")
	}

	headers := form.File[formFieldFile]
	if len(headers) == 0 {
		// browsers send an empty filename when nothing was picked; the
		// multipart reader files such parts under values
		if _, ok := form.Value[formFieldFile]; ok {
			s.addFlash(c, msgNoFileSelected)
		} else {
			s.addFlash(c, msgNoFilePart)
		}
		return c.Redirect("/")
	}

	fh := headers[0]
	if fh.Filename == "" {
		s.addFlash(c, msgNoFileSelected)
		return c.Redirect("/")
	}

	f, err := fh.Open()
	if err != nil {
		s.addFlash(c, fmt.Sprintf(msgUploadFailed, err))
		return c.Redirect("/")
	}
	defer f.Close()

	err = s.deps.Files.UploadFile(ctx, fh.Filename, f, fh.Header.Get(fiber.HeaderContentType))
	switch {
	case errors.Is(err, common.ErrEmptyFilename):
		s.addFlash(c, msgNoFileSelected)
	case err != nil:
		s.logger.Error(ctx, "upload failed", "name", fh.Filename, "error", err)
		s.addFlash(c, fmt.Sprintf(msgUploadFailed, err))
	default:
		s.addFlash(c, fmt.Sprintf(msgUploaded, fh.Filename))
	}

	return c.Redirect("/")
}

// download streams an object back as an attachment. Object names may
// contain slashes, so the whole wildcard is the key.
func (s *Server) download(c *fiber.Ctx) error {
	ctx := c.UserContext()

	name, err := url.PathUnescape(c.Params("*"))
	if err != nil {
		s.addFlash(c, fmt.Sprintf(msgDownloadFailed, err))
		return c.Redirect("/")
	}

	content, err := s.deps.Files.DownloadFile(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "download of missing object", "name", name)
		} else {
			s.logger.Error(ctx, "download failed", "name", name, "error", err)
		}
		s.addFlash(c, fmt.Sprintf(msgDownloadFailed, err))
		return c.Redirect("/")
	}

	c.Attachment(name)
	if content.Size >= 0 {
		return c.SendStream(content.Body, int(content.Size))
	}
	return c.SendStream(content.Body)
}

func (s *Server) registerPage(c *fiber.Ctx) error {
	return s.render(c, pageRegister, pageData{Title: "Register"})
}

func (s *Server) register(c *fiber.Ctx) error {
	ctx := c.UserContext()
	username := c.FormValue(formFieldUsername)

	_, err := s.deps.Users.Register(ctx, username, c.FormValue(formFieldPassword))
	switch {
	case err == nil:
		s.logger.Info(ctx, "Registered", "username", username)
		s.addFlash(c, msgRegistered)
		return c.Redirect("/login")
	case errors.Is(err, common.ErrDuplicateUsername):
		s.addFlash(c, msgUsernameTaken)
	case errors.Is(err, common.ErrorValidation):
		s.addFlash(c, msgRegisterInvalid)
	default:
		s.logger.Error(ctx, "register failed", "error", err)
		s.addFlash(c, msgRegisterFailed)
	}

	return c.Redirect("/register")
}

func (s *Server) loginPage(c *fiber.Ctx) error {
	return s.render(c, pageLogin, pageData{Title: "Log in"})
}

func (s *Server) login(c *fiber.Ctx) error {
	ctx := c.UserContext()

	user, err := s.deps.Users.Login(ctx, c.FormValue(formFieldUsername), c.FormValue(formFieldPassword))
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			s.addFlash(c, msgInvalidLogin)
		} else {
			s.logger.Error(ctx, "login failed", "error", err)
			s.addFlash(c, msgLoginFailed)
		}
		return c.Redirect("/login")
	}

	if err := s.setSession(c, user.ID); err != nil {
		s.logger.Error(ctx, "issue session", "error", err)
		s.addFlash(c, msgLoginFailed)
		return c.Redirect("/login")
	}

	s.addFlash(c, msgLoggedIn)
	return c.Redirect("/")
}

// logout works with or without a session.
func (s *Server) logout(c *fiber.Ctx) error {
	s.clearSession(c)
	s.addFlash(c, msgLoggedOut)
	return c.Redirect("/login")
}
