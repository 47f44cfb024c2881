// Package apitest runs an in-process fake of the wedding site API for tests.
// It follows the same routes, status codes and bodies as the real service,
// keeps everything in memory and counts the requests it receives.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"wedding-site/internal/models"
)

// Route keys accepted by Fail and Calls
const (
	RouteRegister     = "POST /auth/register"
	RouteLogin        = "POST /auth/login"
	RouteAdminLogin   = "POST /admin/login"
	RouteCreateRSVP   = "POST /rsvps"
	RouteGetRSVP      = "GET /rsvps/:id"
	RouteListRSVPs    = "GET /admin/rsvps"
	RouteUpdateStatus = "PATCH /admin/rsvps/:id/status"
)

type account struct {
	id       string
	name     string
	email    string
	password []byte
	created  time.Time
}

type failure struct {
	status  int
	message string
}

// Server is a running fake API
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	adminCode string
	secret    []byte
	accounts  map[string]*account
	rsvps     []models.RSVP
	failures  map[string]failure
	calls     map[string]int
	total     int
}

// New starts a fake API that accepts adminCode for the admin exchange
func New(adminCode string) *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		adminCode: adminCode,
		secret:    []byte("apitest-" + uuid.NewString()),
		accounts:  make(map[string]*account),
		failures:  make(map[string]failure),
		calls:     make(map[string]int),
	}

	router := gin.New()
	router.Use(s.record)

	router.POST("/auth/register", s.register)
	router.POST("/auth/login", s.login)
	router.POST("/admin/login", s.adminLogin)
	router.POST("/rsvps", s.createRSVP)
	router.GET("/rsvps/:id", s.getRSVP)

	admin := router.Group("/admin")
	admin.Use(s.requireAdmin)
	{
		admin.GET("/rsvps", s.listRSVPs)
		admin.PATCH("/rsvps/:id/status", s.updateStatus)
	}

	s.Server = httptest.NewServer(router)
	return s
}

// Fail makes every later request to route answer with status and message
func (s *Server) Fail(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, message: message}
}

// Recover undoes Fail for route
func (s *Server) Recover(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, route)
}

// Calls returns how many requests hit route
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls returns how many requests the server received
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Accounts returns how many guest accounts exist
func (s *Server) Accounts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

// AddAccount registers a guest account directly
func (s *Server) AddAccount(name, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[email] = &account{id: uuid.NewString(), name: name, email: email, password: hash, created: time.Now()}
	return nil
}

// AddRSVP stores rsvp as-is, assigning an id if it has none
func (s *Server) AddRSVP(rsvp models.RSVP) models.RSVP {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rsvp.ID == "" {
		rsvp.ID = uuid.NewString()
	}
	if rsvp.Status == "" {
		rsvp.Status = models.RSVPPending
	}
	s.rsvps = append(s.rsvps, rsvp)
	return rsvp
}

// RSVP returns the stored record with id
func (s *Server) RSVP(id string) (models.RSVP, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rsvps {
		if r.ID == id {
			return r, true
		}
	}
	return models.RSVP{}, false
}

func (s *Server) record(c *gin.Context) {
	route := c.Request.Method + " " + c.FullPath()

	s.mu.Lock()
	s.total++
	s.calls[route]++
	f, failing := s.failures[route]
	s.mu.Unlock()

	if failing {
		if f.message == "" {
			c.AbortWithStatus(f.status)
			return
		}
		c.AbortWithStatusJSON(f.status, gin.H{"message": f.message})
		return
	}
	c.Next()
}

func (s *Server) issueToken(subject, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	})
	return token.SignedString(s.secret)
}

func (s *Server) requireAdmin(c *gin.Context) {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Missing token"})
		return
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
		return
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["role"] != "admin" {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Admin only"})
		return
	}
	c.Next()
}

func profileJSON(a *account) gin.H {
	return gin.H{
		"_id":       a.id,
		"name":      a.name,
		"email":     a.email,
		"createdAt": a.created.UTC().Format(time.RFC3339),
	}
}

type registerInput struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) register(c *gin.Context) {
	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}

	s.mu.Lock()
	_, exists := s.accounts[input.Email]
	s.mu.Unlock()
	if exists {
		c.JSON(http.StatusConflict, gin.H{"message": "Email already registered"})
		return
	}

	if err := s.AddAccount(input.Name, input.Email, input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create user"})
		return
	}
	s.respondWithSession(c, http.StatusCreated, input.Email)
}

type loginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[input.Email]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.password, []byte(input.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password"})
		return
	}
	s.respondWithSession(c, http.StatusOK, input.Email)
}

func (s *Server) respondWithSession(c *gin.Context, status int, email string) {
	s.mu.Lock()
	acc := s.accounts[email]
	s.mu.Unlock()

	token, err := s.issueToken(acc.id, "guest")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to generate token"})
		return
	}
	c.JSON(status, gin.H{"user": profileJSON(acc), "token": token})
}

func (s *Server) adminLogin(c *gin.Context) {
	var input struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.Code != s.adminCode {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid code"})
		return
	}
	token, err := s.issueToken("admin", "admin")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) createRSVP(c *gin.Context) {
	var input models.RSVPRequest
	if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.Name) == "" || input.Guests < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Name and at least one guest are required"})
		return
	}
	created := s.AddRSVP(models.RSVP{
		Name:    input.Name,
		Guests:  input.Guests,
		Message: input.Message,
		Dietary: input.Dietary,
		Status:  models.RSVPPending,
	})
	c.JSON(http.StatusCreated, created)
}

func (s *Server) getRSVP(c *gin.Context) {
	rsvp, ok := s.RSVP(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "RSVP not found"})
		return
	}
	c.JSON(http.StatusOK, rsvp)
}

func (s *Server) listRSVPs(c *gin.Context) {
	s.mu.Lock()
	list := make([]models.RSVP, len(s.rsvps))
	copy(list, s.rsvps)
	s.mu.Unlock()
	c.JSON(http.StatusOK, list)
}

func (s *Server) updateStatus(c *gin.Context) {
	var input models.StatusUpdate
	if err := c.ShouldBindJSON(&input); err != nil || !input.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid status"})
		return
	}

	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rsvps {
		if s.rsvps[i].ID == id {
			s.rsvps[i].Status = input.Status
			c.JSON(http.StatusOK, s.rsvps[i])
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "RSVP not found"})
}
