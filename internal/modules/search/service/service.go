package service

import (
	"errors"
	"html"
	"strings"
	"time"

	"anoa.com/karmaforum/internal/entity"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	log "github.com/sirupsen/logrus"
)

const (
	PostsIndex    = "posts"
	CommentsIndex = "comments"

	signingKeyName = "KarmaForumTenantSigner"
	tokenTTL       = 24 * time.Hour
)

var ErrSearchDisabled = errors.New("search is not configured")

// SearchService keeps the search engine in sync with posts and comments.
// Index calls are best effort from the caller's point of view.
type SearchService interface {
	IndexPost(post *entity.Post) error
	IndexComment(comment *entity.Comment) error
	// DeletePost removes the post document and the documents of its comments.
	DeletePost(postID uuid.UUID, commentIDs []uuid.UUID) error
	GenerateSearchToken() (string, error)
}

type meiliSearchService struct {
	client        meilisearch.ServiceManager
	signingKeyUID string
	signingKey    string
	sanitizer     *bluemonday.Policy
}

// NewSearchService returns the meilisearch backed service, or a no-op one when host is empty.
func NewSearchService(host, masterKey string) SearchService {
	if host == "" {
		log.Info("MEILISEARCH_HOST not set, search indexing disabled")
		return NoopSearchService{}
	}
	if !strings.HasPrefix(host, "http") {
		host = "http://" + host + ":7700"
	}
	if masterKey == "" {
		log.Warn("MEILI_MASTER_KEY is not set")
	}

	s := &meiliSearchService{
		client:    meilisearch.New(host, meilisearch.WithAPIKey(masterKey)),
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	s.initSigningKey()
	return s
}

func (s *meiliSearchService) initSigningKey() {
	resp, err := s.client.GetKeys(&meilisearch.KeysQuery{
		Limit: 20,
	})
	if err != nil {
		log.WithError(err).Warn("failed to list meilisearch keys")
		return
	}

	for _, key := range resp.Results {
		if key.Name == signingKeyName {
			s.signingKeyUID = key.UID
			s.signingKey = key.Key
			log.Debug("found existing meilisearch signing key")
			return
		}
	}

	key, err := s.client.CreateKey(&meilisearch.Key{
		Description: "Key to sign tenant tokens",
		Name:        signingKeyName,
		Actions:     []string{"search"},
		Indexes:     []string{PostsIndex, CommentsIndex},
		ExpiresAt:   time.Now().AddDate(100, 0, 0),
	})
	if err != nil {
		log.WithError(err).Warn("failed to create meilisearch signing key")
		return
	}

	s.signingKeyUID = key.UID
	s.signingKey = key.Key
	log.Info("created meilisearch signing key")
}

func (s *meiliSearchService) initIndexes() {
	commentFilterable := []any{"post_id"}
	if _, err := s.client.Index(CommentsIndex).UpdateFilterableAttributes(&commentFilterable); err != nil {
		log.WithError(err).Warn("failed to update comments filterable attributes")
	}

	sortable := []string{"created_at"}
	for _, index := range []string{PostsIndex, CommentsIndex} {
		if _, err := s.client.Index(index).UpdateSortableAttributes(&sortable); err != nil {
			log.WithError(err).WithField("index", index).Warn("failed to update sortable attributes")
		}
	}

	log.Info("meilisearch indexes initialized")
}

type postDoc struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Author    string `json:"author"`
	CreatedAt int64  `json:"created_at"`
}

type commentDoc struct {
	ID        string `json:"id"`
	PostID    string `json:"post_id"`
	ParentID  string `json:"parent_id,omitempty"`
	Content   string `json:"content"`
	Author    string `json:"author"`
	CreatedAt int64  `json:"created_at"`
}

func (s *meiliSearchService) toPostDoc(post *entity.Post) postDoc {
	return postDoc{
		ID:        post.ID.String(),
		Content:   cleanContentForIndex(s.sanitizer, post.Content),
		Author:    post.Author.Username,
		CreatedAt: post.CreatedAt.Unix(),
	}
}

func (s *meiliSearchService) toCommentDoc(comment *entity.Comment) commentDoc {
	doc := commentDoc{
		ID:        comment.ID.String(),
		PostID:    comment.PostID.String(),
		Content:   cleanContentForIndex(s.sanitizer, comment.Content),
		Author:    comment.Author.Username,
		CreatedAt: comment.CreatedAt.Unix(),
	}
	if comment.ParentID != nil {
		doc.ParentID = comment.ParentID.String()
	}
	return doc
}

// cleanContentForIndex strips markup to plain searchable text.
func cleanContentForIndex(policy *bluemonday.Policy, content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	cleanText := html.UnescapeString(policy.Sanitize(content))
	return strings.Join(strings.Fields(cleanText), " ")
}

func (s *meiliSearchService) IndexPost(post *entity.Post) error {
	task, err := s.client.Index(PostsIndex).AddDocuments([]postDoc{s.toPostDoc(post)}, strPtr("id"))
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"post_id": post.ID, "task": task.TaskUID}).Debug("post indexed")
	return nil
}

func (s *meiliSearchService) IndexComment(comment *entity.Comment) error {
	task, err := s.client.Index(CommentsIndex).AddDocuments([]commentDoc{s.toCommentDoc(comment)}, strPtr("id"))
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"comment_id": comment.ID, "task": task.TaskUID}).Debug("comment indexed")
	return nil
}

func (s *meiliSearchService) DeletePost(postID uuid.UUID, commentIDs []uuid.UUID) error {
	var errs []error
	if _, err := s.client.Index(PostsIndex).DeleteDocument(postID.String()); err != nil {
		errs = append(errs, err)
	}
	for _, id := range commentIDs {
		if _, err := s.client.Index(CommentsIndex).DeleteDocument(id.String()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GenerateSearchToken signs a tenant token allowing search on both indexes.
func (s *meiliSearchService) GenerateSearchToken() (string, error) {
	if s.signingKeyUID == "" || s.signingKey == "" {
		return "", errors.New("signing key not initialized")
	}

	searchRules := map[string]any{
		PostsIndex:    map[string]any{},
		CommentsIndex: map[string]any{},
	}

	return s.client.GenerateTenantToken(s.signingKeyUID, searchRules, &meilisearch.TenantTokenOptions{
		APIKey:    s.signingKey,
		ExpiresAt: time.Now().Add(tokenTTL),
	})
}

func strPtr(s string) *string {
	return &s
}

// NoopSearchService is used when no search engine is configured.
type NoopSearchService struct{}

func (NoopSearchService) IndexPost(*entity.Post) error            { return nil }
func (NoopSearchService) IndexComment(*entity.Comment) error      { return nil }
func (NoopSearchService) DeletePost(uuid.UUID, []uuid.UUID) error { return nil }
func (NoopSearchService) GenerateSearchToken() (string, error)    { return "", ErrSearchDisabled }
