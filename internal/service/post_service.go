package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xralks/Bancodealimentos/internal/calc"
	"github.com/xralks/Bancodealimentos/internal/dto"
	"github.com/xralks/Bancodealimentos/internal/models"
	appErrors "github.com/xralks/Bancodealimentos/pkg/errors"
)

const feedCachePattern = "feed:*"

type postRepository interface {
	Create(ctx context.Context, post *models.Post, lines []models.PostProduct) error
	GetWithAuthor(ctx context.Context, id string) (*models.PostWithAuthor, error)
	List(ctx context.Context, filter models.PostFilter) ([]models.PostWithAuthor, error)
	Count(ctx context.Context, filter models.PostFilter) (int, error)
	UpdateStatus(ctx context.Context, id string, from, to models.AcceptanceStatus, updatedAt time.Time) error
}

type postLineReader interface {
	ListByPost(ctx context.Context, postID string) ([]models.PostProductLine, error)
}

type productLookup interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Product, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// PostServiceConfig tunes the feed cache.
type PostServiceConfig struct {
	FeedTTL time.Duration
}

// PostService publishes posts, serves feeds and runs the acceptance workflow.
type PostService struct {
	posts     postRepository
	lines     postLineReader
	products  productLookup
	audit     auditRecorder
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       PostServiceConfig
}

// NewPostService constructs the service. cache and metrics may be nil.
func NewPostService(posts postRepository, lines postLineReader, products productLookup, audit auditRecorder, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg PostServiceConfig) *PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PostService{
		posts:     posts,
		lines:     lines,
		products:  products,
		audit:     audit,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Create publishes a post with its optional product lines. Lines need a storable
// quantity (see calc.CheckQuantity) and distinct products. When lines exist and no
// detail text is given a "Category: Name (Q kg)" summary is stored instead.
func (s *PostService) Create(ctx context.Context, session *models.JWTClaims, req dto.CreatePostRequest) (*dto.PostDetail, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	req.QuantityDetail = strings.TrimSpace(req.QuantityDetail)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}

	seen := make(map[string]struct{}, len(req.Lines))
	ids := make([]string, 0, len(req.Lines))
	for _, line := range req.Lines {
		if err := calc.CheckQuantity(line.QuantityKg); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		if _, dup := seen[line.ProductID]; dup {
			return nil, appErrors.Clone(appErrors.ErrDuplicateProduct, fmt.Sprintf("product %s selected more than once", line.ProductID))
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}

	catalogue := map[string]models.Product{}
	if len(ids) > 0 {
		found, err := s.products.FindByIDs(ctx, ids)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load products")
		}
		for _, p := range found {
			catalogue[p.ID] = p
		}
	}

	lines := make([]models.PostProduct, 0, len(req.Lines))
	summary := make([]calc.SummaryItem, 0, len(req.Lines))
	for _, line := range req.Lines {
		product, ok := catalogue[line.ProductID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown product %s", line.ProductID))
		}
		lines = append(lines, models.PostProduct{ProductID: product.ID, Quantity: line.QuantityKg})
		summary = append(summary, calc.SummaryItem{Category: product.Category, Name: product.Name, Quantity: line.QuantityKg})
	}

	detail := req.QuantityDetail
	if detail == "" && len(summary) > 0 {
		detail = calc.QuantitySummary(summary)
	}

	post := &models.Post{
		Title:          req.Title,
		Content:        req.Content,
		UserID:         session.UserID,
		Status:         models.AcceptanceNotReviewed,
		QuantityDetail: optionalString(detail),
	}
	if err := s.posts.Create(ctx, post, lines); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create post")
	}

	s.metrics.RecordPostCreated()
	s.invalidateFeeds(ctx)
	s.recordAudit(ctx, session, models.AuditActionPostCreate, post.ID, nil, map[string]interface{}{"lines": len(lines)})

	view := make([]models.PostProductLine, len(lines))
	for i, line := range lines {
		product := catalogue[line.ProductID]
		view[i] = models.PostProductLine{PostProduct: line, ProductName: product.Name, Category: product.Category}
	}
	return &dto.PostDetail{
		PostWithAuthor:  models.PostWithAuthor{Post: *post, AuthorName: session.FullName, AuthorRole: session.Role},
		AuthorRoleLabel: session.Role.Label(),
		Lines:           view,
	}, nil
}

// Feed lists one page of posts by other users; Count is the total across pages.
// Reviewers only see posts awaiting review. A non-positive limit uses the
// repository default page size.
func (s *PostService) Feed(ctx context.Context, session *models.JWTClaims, limit, offset int) (*dto.PostListResponse, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	filter := models.PostFilter{ExcludeUserID: session.UserID, Limit: limit, Offset: offset}
	scope := "all"
	if session.Role.CanReview() {
		filter.Statuses = []models.AcceptanceStatus{models.AcceptanceNotReviewed}
		scope = "review"
	}

	key := fmt.Sprintf("feed:%s:%s:%d:%d", scope, session.UserID, limit, offset)
	var cached dto.PostListResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		cached.FromCache = true
		return &cached, nil
	}

	posts, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feed")
	}
	total, err := s.posts.Count(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count feed")
	}
	resp := &dto.PostListResponse{Items: nonNilPosts(posts), Count: total}
	_ = s.cache.Set(ctx, key, resp, s.cfg.FeedTTL)
	return resp, nil
}

// Mine lists the caller's posts, newest first, with the total count.
func (s *PostService) Mine(ctx context.Context, session *models.JWTClaims) (*dto.PostListResponse, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	filter := models.PostFilter{UserID: session.UserID}
	posts, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load posts")
	}
	total, err := s.posts.Count(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count posts")
	}
	return &dto.PostListResponse{Items: nonNilPosts(posts), Count: total}, nil
}

// Get returns a post with its author and product lines.
func (s *PostService) Get(ctx context.Context, session *models.JWTClaims, id string) (*dto.PostDetail, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	post, err := s.loadPost(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.lines.ListByPost(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post products")
	}
	if lines == nil {
		lines = []models.PostProductLine{}
	}
	return &dto.PostDetail{PostWithAuthor: *post, AuthorRoleLabel: post.AuthorRole.Label(), Lines: lines}, nil
}

// ToggleAcceptance applies the accept action. Reviewers only, never on their own
// posts. The update is conditional on the state that was read; a concurrent
// change yields a conflict and leaves the post untouched.
func (s *PostService) ToggleAcceptance(ctx context.Context, session *models.JWTClaims, id string) (*models.PostWithAuthor, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if !session.Role.CanReview() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators and institutions can review posts")
	}

	post, err := s.loadPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.UserID == session.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "authors cannot accept their own posts")
	}

	next, err := calc.NextAcceptance(post.Status, string(post.AuthorRole))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "post has an unknown status")
	}

	now := time.Now().UTC()
	if err := s.posts.UpdateStatus(ctx, post.ID, post.Status, next, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "post status changed, reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update post status")
	}

	previous := post.Status
	post.Status = next
	post.UpdatedAt = now

	s.metrics.RecordAcceptance(string(next))
	s.invalidateFeeds(ctx)
	s.recordAudit(ctx, session, models.AuditActionPostAcceptance, post.ID,
		map[string]interface{}{"status": previous},
		map[string]interface{}{"status": next},
	)
	s.logger.Info("post acceptance toggled",
		zap.String("post_id", post.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(next)),
		zap.String("reviewer_id", session.UserID),
	)
	return post, nil
}

func (s *PostService) loadPost(ctx context.Context, id string) (*models.PostWithAuthor, error) {
	post, err := s.posts.GetWithAuthor(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}
	return post, nil
}

func (s *PostService) invalidateFeeds(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, feedCachePattern)
}

func (s *PostService) recordAudit(ctx context.Context, session *models.JWTClaims, action, postID string, oldValues, newValues interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &session.UserID,
		Action:     action,
		Resource:   "post",
		ResourceID: &postID,
	}
	if oldValues != nil {
		entry.OldValues = auditPayload(oldValues)
	}
	if newValues != nil {
		entry.NewValues = auditPayload(newValues)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record post audit log", zap.String("action", action), zap.Error(err))
	}
}

func nonNilPosts(posts []models.PostWithAuthor) []models.PostWithAuthor {
	if posts == nil {
		return []models.PostWithAuthor{}
	}
	return posts
}
