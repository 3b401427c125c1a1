package handler

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"docchain/internal/service"
)

const healthTimeout = 2 * time.Second

// Check is a named dependency probe used by /health.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// DBCheck probes the Postgres pool.
func DBCheck(db *sql.DB) Check {
	return Check{Name: "postgres", Ping: db.PingContext}
}

// RedisCheck probes the Redis client shared by the cache and the queue.
func RedisCheck(client *redis.Client) Check {
	return Check{Name: "redis", Ping: func(ctx context.Context) error { return client.Ping(ctx).Err() }}
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, docSvc service.DocumentService, checks ...Check) {
	app.Get("/health", HealthCheck(checks...))
	app.Get("/healthz", LivenessProbe())

	app.Post("/documents", CreateDocument(docSvc))
	app.Get("/documents/:id", GetLatest(docSvc))
	app.Post("/documents/:id/versions", AppendVersion(docSvc))
	app.Get("/documents/:id/versions", ListVersions(docSvc))
	app.Get("/documents/:id/versions/:versionId/diff", GetDiff(docSvc))
	app.Get("/search", SearchDocuments(docSvc))
}

// HealthCheck reports 503 when any dependency fails to answer.
func HealthCheck(checks ...Check) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()

		deps := make(map[string]string, len(checks))
		healthy := true
		for _, chk := range checks {
			if err := chk.Ping(ctx); err != nil {
				deps[chk.Name] = "down"
				healthy = false
				continue
			}
			deps[chk.Name] = "up"
		}
		if !healthy {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy", "dependencies": deps})
	}
}

// LivenessProbe always answers 200.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

type createDocumentRequest struct {
	Title     string `json:"title"`
	CreatedBy string `json:"createdBy"`
	Content   string `json:"content"`
}

type appendVersionRequest struct {
	Content string `json:"content"`
}

// CreateDocument handles POST /documents.
func CreateDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createDocumentRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if req.Title == "" || req.CreatedBy == "" || req.Content == "" {
			return writeError(c, fiber.StatusBadRequest, "MISSING_FIELDS", "title, createdBy and content are required")
		}

		doc, err := docSvc.CreateDocument(c.UserContext(), req.Title, req.CreatedBy, req.Content)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// AppendVersion handles POST /documents/:id/versions.
func AppendVersion(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req appendVersionRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if req.Content == "" {
			return writeError(c, fiber.StatusBadRequest, "MISSING_CONTENT", "content is required")
		}

		v, err := docSvc.CreateVersion(c.UserContext(), id, req.Content)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(v)
	}
}

// GetLatest handles GET /documents/:id. Served from the cache when possible.
func GetLatest(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		snap, err := docSvc.GetLatest(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(snap)
	}
}

// ListVersions handles GET /documents/:id/versions.
func ListVersions(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		versions, err := docSvc.ListVersions(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"data": versions, "total": len(versions)})
	}
}

// GetDiff handles GET /documents/:id/versions/:versionId/diff.
func GetDiff(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		versionID := c.Params("versionId")
		if _, err := uuid.Parse(versionID); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_VERSION_ID", "invalid version id format")
		}

		diff, err := docSvc.GetDiff(c.UserContext(), id, versionID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(diff)
	}
}

// SearchDocuments handles GET /search?q=&limit=.
func SearchDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := c.Query("q")
		if q == "" {
			return writeError(c, fiber.StatusBadRequest, "MISSING_QUERY", "missing query param q")
		}
		limit, err := strconv.Atoi(c.Query("limit", "0"))
		if err != nil || limit < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}

		docs, err := docSvc.Search(c.UserContext(), q, limit)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(docs)
	}
}

func documentID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// serviceError translates service errors. Unknown errors never leak their text.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	case errors.Is(err, service.ErrDiffNotFound):
		return writeError(c, fiber.StatusNotFound, "DIFF_NOT_FOUND", "diff not found")
	case errors.Is(err, service.ErrIDRequired),
		errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrCreatorRequired),
		errors.Is(err, service.ErrContentRequired),
		errors.Is(err, service.ErrQueryRequired):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
