package stubserver

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

func currentUserID(c *fiber.Ctx) uint {
	if id, ok := c.Locals("userID").(uint); ok {
		return id
	}
	return 0
}

func respondStatus(c *fiber.Ctx, httpStatus int, status, message string) error {
	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
	})
}

// respondValidation returns the field-errors envelope used for form
// rejections: a 422 with a message plus per-field error lists.
func respondValidation(c *fiber.Ctx, errs map[string][]string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"status":  "error",
		"message": "The given data was invalid.",
		"errors":  errs,
	})
}

// saveUpload writes a multipart file under the media dir with a random name,
// keeping the original extension. Returns the stored filename.
func (s *Server) saveUpload(fh *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(s.config.MediaDir, 0o755); err != nil {
		return "", err
	}
	name := uuid.NewString() + filepath.Ext(fh.Filename)

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.config.MediaDir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return name, nil
}
