// Package api provides the REST surface of the gamification engine: trigger
// submission, awards, leaderboards, badges, and rule administration.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/intinc/interact-engine/internal/auth"
	"github.com/intinc/interact-engine/internal/models"
	"github.com/intinc/interact-engine/internal/service/badges"
	"github.com/intinc/interact-engine/internal/service/leaderboard"
	"github.com/intinc/interact-engine/internal/service/points"
	"github.com/intinc/interact-engine/internal/service/rules"
	"github.com/intinc/interact-engine/pkg/logger"
)

// RuleEngine interface for rule execution.
type RuleEngine interface {
	Execute(ctx context.Context, trigger *rules.Trigger) (*rules.Result, error)
}

// PointsService interface for direct point awards.
type PointsService interface {
	Adjust(ctx context.Context, userEmail string, amount int, reason string) (*points.ApplyResult, error)
	AwardForParticipation(ctx context.Context, participationID uint, awardType string) (*points.ApplyResult, error)
}

// BadgeService interface for badge operations.
type BadgeService interface {
	EvaluateUser(ctx context.Context, userEmail string) (int, error)
	AwardManual(ctx context.Context, userEmail string, badgeID uint) error
	ListCatalog() ([]badges.CatalogEntry, error)
	UserBadges(userEmail string) ([]models.BadgeAward, error)
}

// LeaderboardService interface for leaderboard operations.
type LeaderboardService interface {
	GetLeaderboard(period string, limit int) ([]leaderboard.Entry, error)
	GetUserStats(userEmail string) (*leaderboard.UserStats, error)
}

// RuleAdmin interface for rule administration.
type RuleAdmin interface {
	List() ([]models.GamificationRule, error)
}

// BadgeLookup interface for badge catalog detail lookups.
type BadgeLookup interface {
	GetByID(id uint) (*models.Badge, error)
	GetHolders(badgeID uint) ([]string, error)
}

// Health interface for readiness checks.
type Health interface {
	Health() error
}

// Handler handles engine API requests.
type Handler struct {
	engine      RuleEngine
	points      PointsService
	badges      BadgeService
	leaderboard LeaderboardService
	ruleAdmin   RuleAdmin
	badgeLookup BadgeLookup
	health      Health
	guard       *auth.Guard
	limiter     RateLimiter
	log         *logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(
	engine RuleEngine,
	pointsService PointsService,
	badgeService BadgeService,
	leaderboardService LeaderboardService,
	ruleAdmin RuleAdmin,
	badgeLookup BadgeLookup,
	health Health,
	guard *auth.Guard,
	limiter RateLimiter,
	log *logger.Logger,
) *Handler {
	return &Handler{
		engine:      engine,
		points:      pointsService,
		badges:      badgeService,
		leaderboard: leaderboardService,
		ruleAdmin:   ruleAdmin,
		badgeLookup: badgeLookup,
		health:      health,
		guard:       guard,
		limiter:     limiter,
		log:         log,
	}
}

// RegisterRoutes attaches all endpoints to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Healthz)

	v1 := router.Group("/api/v1")
	v1.Use(h.identityMiddleware())

	v1.POST("/rules/execute",
		h.requirePermission(auth.PermExecuteRules),
		h.rateLimitMiddleware("rules_execute"),
		h.ExecuteRules)
	v1.GET("/rules", h.requirePermission(auth.PermManageRules), h.ListRules)

	v1.POST("/points/adjust", h.requirePermission(auth.PermAdjustPoints), h.AdjustPoints)
	v1.POST("/participations/:id/award", h.requirePermission(auth.PermAdjustPoints), h.AwardParticipation)

	v1.POST("/badges/:id/award", h.requirePermission(auth.PermManageBadges), h.AwardBadge)

	v1.GET("/leaderboard", h.GetLeaderboard)
	v1.GET("/users/:email/stats", h.GetUserStats)
	v1.GET("/users/:email/badges", h.GetUserBadges)
	v1.GET("/badges", h.GetBadgeCatalog)
	v1.GET("/badges/:id", h.GetBadge)
	v1.GET("/badges/:id/holders", h.GetBadgeHolders)
}

// executeRequest is the trigger submission payload. Entity is optional: a
// trigger with only user_email still evaluates user-level rules.
type executeRequest struct {
	Entity    string                 `json:"entity"`
	EntityID  *string                `json:"entity_id"`
	UserEmail string                 `json:"user_email" binding:"required,email"`
	Data      map[string]interface{} `json:"data"`
}

// ExecuteRules evaluates all active rules against a trigger.
// POST /api/v1/rules/execute.
func (h *Handler) ExecuteRules(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Entity != "" && !rules.KnownEntity(req.Entity) {
		h.errorResponse(c, http.StatusBadRequest, "unknown trigger entity")
		return
	}

	result, err := h.engine.Execute(c.Request.Context(), &rules.Trigger{
		Entity:    req.Entity,
		EntityID:  req.EntityID,
		UserEmail: req.UserEmail,
		Data:      req.Data,
	})
	if err != nil {
		if errors.Is(err, rules.ErrMissingUserEmail) {
			h.errorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("user", req.UserEmail).Msg("Rule execution failed")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to execute rules")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"executed_rules": len(result.Fired),
		"rules":          result.Fired,
		"evaluated":      result.Evaluated,
		"failed":         result.Failed,
		"skipped":        result.Skipped,
		"generated_at":   time.Now().UTC(),
	})
}

// ListRules returns every rule, active or not.
// GET /api/v1/rules.
func (h *Handler) ListRules(c *gin.Context) {
	list, err := h.ruleAdmin.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list rules")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve rules")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rules":        list,
		"total":        len(list),
		"generated_at": time.Now().UTC(),
	})
}

// adjustRequest is the manual adjustment payload.
type adjustRequest struct {
	UserEmail string `json:"user_email" binding:"required,email"`
	Amount    int    `json:"amount" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

// AdjustPoints credits points outside any rule.
// POST /api/v1/points/adjust.
func (h *Handler) AdjustPoints(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.points.Adjust(c.Request.Context(), req.UserEmail, req.Amount, req.Reason)
	if err != nil {
		if errors.Is(err, points.ErrInvalidAmount) {
			h.errorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("user", req.UserEmail).Msg("Points adjustment failed")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to adjust points")
		return
	}

	h.evaluateBadges(c, req.UserEmail)

	c.JSON(http.StatusOK, gin.H{
		"points":       result.Points,
		"leveled_up":   result.LeveledUp,
		"generated_at": time.Now().UTC(),
	})
}

// awardParticipationRequest selects the award type for a participation.
type awardParticipationRequest struct {
	AwardType string `json:"award_type" binding:"required"`
}

// AwardParticipation credits the fixed award for one participation.
// POST /api/v1/participations/:id/award.
func (h *Handler) AwardParticipation(c *gin.Context) {
	id, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req awardParticipationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.points.AwardForParticipation(c.Request.Context(), id, req.AwardType)
	if err != nil {
		switch {
		case errors.Is(err, points.ErrUnknownAwardType):
			h.errorResponse(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, points.ErrParticipationNotFound):
			h.errorResponse(c, http.StatusNotFound, err.Error())
		case errors.Is(err, points.ErrAlreadyAwarded):
			h.errorResponse(c, http.StatusConflict, err.Error())
		default:
			h.log.Error().Err(err).Uint("participation_id", id).Msg("Participation award failed")
			h.errorResponse(c, http.StatusInternalServerError, "Failed to award points")
		}
		return
	}

	h.evaluateBadges(c, result.Points.UserEmail)

	c.JSON(http.StatusOK, gin.H{
		"points":       result.Points,
		"leveled_up":   result.LeveledUp,
		"generated_at": time.Now().UTC(),
	})
}

// awardBadgeRequest names the badge recipient.
type awardBadgeRequest struct {
	UserEmail string `json:"user_email" binding:"required,email"`
}

// AwardBadge grants a badge manually.
// POST /api/v1/badges/:id/award.
func (h *Handler) AwardBadge(c *gin.Context) {
	id, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req awardBadgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.badges.AwardManual(c.Request.Context(), req.UserEmail, id); err != nil {
		switch {
		case errors.Is(err, badges.ErrBadgeNotFound):
			h.errorResponse(c, http.StatusNotFound, err.Error())
		case errors.Is(err, badges.ErrAlreadyHolding):
			h.errorResponse(c, http.StatusConflict, err.Error())
		default:
			h.log.Error().Err(err).Uint("badge_id", id).Msg("Manual badge award failed")
			h.errorResponse(c, http.StatusInternalServerError, "Failed to award badge")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"awarded":      true,
		"generated_at": time.Now().UTC(),
	})
}

// GetLeaderboard returns the top earners.
// GET /api/v1/leaderboard?period=month&limit=10.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	period := c.DefaultQuery("period", leaderboard.PeriodAllTime)
	limit, err := h.parseLimit(c, 10)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.leaderboard.GetLeaderboard(period, limit)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":  entries,
		"period":       period,
		"generated_at": time.Now().UTC(),
	})
}

// GetUserStats returns a user's complete standing.
// GET /api/v1/users/:email/stats.
func (h *Handler) GetUserStats(c *gin.Context) {
	email := c.Param("email")

	stats, err := h.leaderboard.GetUserStats(email)
	if err != nil {
		h.log.Error().Err(err).Str("user", email).Msg("Failed to get user stats")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user statistics")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":        stats,
		"generated_at": time.Now().UTC(),
	})
}

// GetUserBadges returns a user's earned badges.
// GET /api/v1/users/:email/badges.
func (h *Handler) GetUserBadges(c *gin.Context) {
	email := c.Param("email")

	awards, err := h.badges.UserBadges(email)
	if err != nil {
		h.log.Error().Err(err).Str("user", email).Msg("Failed to get user badges")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user badges")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badges":       awards,
		"total":        len(awards),
		"generated_at": time.Now().UTC(),
	})
}

// GetBadgeCatalog returns every badge with holder counts.
// GET /api/v1/badges.
func (h *Handler) GetBadgeCatalog(c *gin.Context) {
	entries, err := h.badges.ListCatalog()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get badge catalog")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve badge catalog")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badges":       entries,
		"total":        len(entries),
		"generated_at": time.Now().UTC(),
	})
}

// GetBadge returns one badge.
// GET /api/v1/badges/:id.
func (h *Handler) GetBadge(c *gin.Context) {
	id, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	badge, err := h.badgeLookup.GetByID(id)
	if err != nil {
		h.log.Error().Err(err).Uint("badge_id", id).Msg("Failed to get badge")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve badge")
		return
	}
	if badge == nil {
		h.errorResponse(c, http.StatusNotFound, "Badge not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badge":        badge,
		"generated_at": time.Now().UTC(),
	})
}

// GetBadgeHolders returns the emails holding a badge.
// GET /api/v1/badges/:id/holders.
func (h *Handler) GetBadgeHolders(c *gin.Context) {
	id, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	holders, err := h.badgeLookup.GetHolders(id)
	if err != nil {
		h.log.Error().Err(err).Uint("badge_id", id).Msg("Failed to get badge holders")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve badge holders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"holders":      holders,
		"total":        len(holders),
		"generated_at": time.Now().UTC(),
	})
}

// Healthz reports process and database health.
// GET /healthz.
func (h *Handler) Healthz(c *gin.Context) {
	if h.health != nil {
		if err := h.health.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// evaluateBadges runs threshold badge evaluation after an award. Failures are
// logged, not surfaced; the award already succeeded.
func (h *Handler) evaluateBadges(c *gin.Context, userEmail string) {
	if h.badges == nil {
		return
	}
	if _, err := h.badges.EvaluateUser(c.Request.Context(), userEmail); err != nil {
		h.log.Warn().Err(err).Str("user", userEmail).Msg("Badge evaluation after award failed")
	}
}

func (h *Handler) parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, errors.New("invalid id parameter")
	}
	return uint(id), nil
}

func (h *Handler) parseLimit(c *gin.Context, defaultLimit int) (int, error) {
	raw := c.DefaultQuery("limit", strconv.Itoa(defaultLimit))
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > 100 {
		return 0, errors.New("limit must be between 1 and 100")
	}
	return limit, nil
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
