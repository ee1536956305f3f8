package stubserver

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"vibio/internal/models"
	"vibio/internal/observability"
	"vibio/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// generateToken mints an HS256 JWT for the user. The user id travels as a
// string in the "sub" claim.
func (s *Server) generateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"iss":      "vibio-stub",
		"aud":      "vibio-client",
		"exp":      now.Add(7 * 24 * time.Hour).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func newConfirmationCode() string {
	return fmt.Sprintf("%06d", gofakeit.Number(0, 999999))
}

type registerRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// Register creates an unconfirmed account. The confirmation code is logged
// instead of mailed; tests read it straight from the database.
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return respondStatus(c, fiber.StatusBadRequest, "error", "Invalid request body")
	}

	errs := map[string][]string{}
	if strings.TrimSpace(req.Name) == "" {
		errs["name"] = append(errs["name"], "The name field is required.")
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		errs["email"] = append(errs["email"], "The email must be a valid email address.")
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		errs["password"] = append(errs["password"], err.Error())
	}
	if req.Password != req.PasswordConfirmation {
		errs["password"] = append(errs["password"], "The password confirmation does not match.")
	}
	if len(errs) == 0 {
		var count int64
		s.db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count)
		if count > 0 {
			errs["email"] = append(errs["email"], "The email has already been taken.")
		}
	}
	if len(errs) > 0 {
		return respondValidation(c, errs)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to create account")
	}

	user := models.User{
		Name:             req.Name,
		Email:            req.Email,
		Password:         string(hash),
		ConfirmationCode: newConfirmationCode(),
	}
	if err := s.db.Create(&user).Error; err != nil {
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to create account")
	}

	observability.GlobalLogger.InfoContext(c.UserContext(), "confirmation code issued",
		"email", user.Email, "code", user.ConfirmationCode)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  "success",
		"message": "Account created, please confirm your email",
		"user":    user,
	})
}

type loginRequest struct {
	UsernameOrEmail string `json:"username_or_email"`
	Password        string `json:"password"`
}

// Login authenticates by username or email and returns a token.
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondStatus(c, fiber.StatusBadRequest, "error", "Invalid request body")
	}

	var user models.User
	err := s.db.Where("username = ? OR email = ?", req.UsernameOrEmail, req.UsernameOrEmail).First(&user).Error
	if err != nil {
		return respondStatus(c, fiber.StatusUnauthorized, "error", "Invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return respondStatus(c, fiber.StatusUnauthorized, "error", "Invalid credentials")
	}
	if !user.Verified() {
		return respondStatus(c, fiber.StatusForbidden, "error", "Please verify your email address before logging in")
	}

	token, err := s.generateToken(&user)
	if err != nil {
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to issue token")
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"token":  token,
		"user":   user,
	})
}

type confirmEmailRequest struct {
	Code  string `json:"code"`
	Email string `json:"email"`
}

// ConfirmEmail redeems a confirmation code, marking the account verified and
// returning a token so the client can proceed straight to profile setup.
func (s *Server) ConfirmEmail(c *fiber.Ctx) error {
	var req confirmEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return respondStatus(c, fiber.StatusBadRequest, "error", "Invalid request body")
	}

	var user models.User
	err := s.db.Where("email = ?", req.Email).First(&user).Error
	if err != nil || user.ConfirmationCode == "" || user.ConfirmationCode != req.Code {
		return respondStatus(c, fiber.StatusUnprocessableEntity, "error", "Invalid confirmation code")
	}

	now := time.Now()
	updates := map[string]interface{}{
		"email_verified_at": &now,
		"confirmation_code": "",
	}
	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to confirm email")
	}
	user.EmailVerifiedAt = &now
	user.ConfirmationCode = ""

	token, err := s.generateToken(&user)
	if err != nil {
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to issue token")
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"token":  token,
		"user":   user,
	})
}

type requestConfirmRequest struct {
	Email string `json:"email"`
}

// RequestConfirmEmail rotates the confirmation code for an unverified
// account. Responds success for unknown emails so the endpoint does not
// leak which addresses exist.
func (s *Server) RequestConfirmEmail(c *fiber.Ctx) error {
	var req requestConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return respondStatus(c, fiber.StatusBadRequest, "error", "Invalid request body")
	}

	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err == nil && !user.Verified() {
		code := newConfirmationCode()
		if err := s.db.Model(&user).Update("confirmation_code", code).Error; err == nil {
			observability.GlobalLogger.InfoContext(c.UserContext(), "confirmation code issued",
				"email", user.Email, "code", code)
		}
	}

	return respondStatus(c, fiber.StatusOK, "success", "Confirmation code sent")
}

// userByID is a shared lookup for handlers operating on the token user.
func (s *Server) userByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
