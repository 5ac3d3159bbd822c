// Package assetservice coordinates the store, the schema resolver, the search
// index and change events for every asset-management operation.
package assetservice

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/othala/internal/authz"
	"github.com/starford/othala/internal/facet"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/schema"
)

// Store is the persistence the service depends on.
type Store interface {
	schema.Source
	authz.Members

	CreateTeam(ctx context.Context, name, ownerID string) (*models.Team, error)
	GetTeam(ctx context.Context, id string) (*models.Team, error)
	ListTeams(ctx context.Context, userID string) ([]models.Team, error)
	TeamIDs(ctx context.Context) ([]string, error)
	AddMember(ctx context.Context, teamID, userID string, role models.Role) error

	GetAssetType(ctx context.Context, teamID, id string) (*models.AssetType, error)
	CreateAssetType(ctx context.Context, at *models.AssetType) error
	UpdateAssetType(ctx context.Context, at *models.AssetType, plan schema.FieldPlan) error
	DeleteAssetType(ctx context.Context, teamID string, plan *schema.DeletePlan) error

	CreateAsset(ctx context.Context, a *models.Asset) error
	UpdateAsset(ctx context.Context, a *models.Asset) error
	GetAsset(ctx context.Context, teamID, id string) (*models.Asset, error)
	ListAssets(ctx context.Context, teamID string, assetTypeIDs []string) ([]models.Asset, error)
	DeleteAsset(ctx context.Context, teamID, id string) error

	CreateTag(ctx context.Context, t *models.Tag) error
	GetTag(ctx context.Context, teamID, id string) (*models.Tag, error)
	ListTags(ctx context.Context, teamID string) ([]models.Tag, error)
	UpdateTag(ctx context.Context, t *models.Tag) error
	DeleteTag(ctx context.Context, teamID, id string) ([]string, error)
}

// Publisher receives a notification for every committed change.
type Publisher interface {
	PublishChange(teamID, resource, kind, id string)
}

// Observer records search-side measurements.
type Observer interface {
	ObserveCompile(grouped bool)
	ObserveSearch(err error)
	ObserveSync(err error)
}

// Event resources.
const (
	ResourceAsset     = "asset"
	ResourceAssetType = "assetType"
	ResourceTag       = "tag"
	ResourceTeam      = "team"
)

type nopPublisher struct{}

func (nopPublisher) PublishChange(string, string, string, string) {}

type nopObserver struct{}

func (nopObserver) ObserveCompile(bool) {}
func (nopObserver) ObserveSearch(error) {}
func (nopObserver) ObserveSync(error)   {}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the change-event sink.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithObserver sets the metrics sink.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.obs = o }
}

// WithBuildObserver is notified after every schema tree build.
func WithBuildObserver(o schema.BuildObserver) Option {
	return func(s *Service) { s.buildObs = o }
}

// WithGroupedClauses makes filter sessions compile parenthesized clauses.
func WithGroupedClauses(grouped bool) Option {
	return func(s *Service) { s.compile.Grouped = grouped }
}

// WithSessions bounds the filter-session cache.
func WithSessions(size int, ttl time.Duration) Option {
	return func(s *Service) { s.sessionSize, s.sessionTTL = size, ttl }
}

// Service is the application layer shared by the HTTP API, the MCP server
// and the template catalog.
type Service struct {
	store    Store
	idx      index.DocumentIndex
	resolver *schema.Resolver
	authz    *authz.Authorizer
	sessions *facet.Sessions
	logger   *slog.Logger

	pub         Publisher
	obs         Observer
	buildObs    schema.BuildObserver
	compile     facet.Options
	sessionSize int
	sessionTTL  time.Duration
}

// New creates a Service.
func New(store Store, idx index.DocumentIndex, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:       store,
		idx:         idx,
		logger:      logger,
		pub:         nopPublisher{},
		obs:         nopObserver{},
		sessionSize: 1024,
		sessionTTL:  30 * time.Minute,
	}
	for _, o := range opts {
		o(s)
	}
	s.resolver = schema.NewResolver(store, logger, s.buildObs)
	s.authz = authz.New(store)
	s.sessions = facet.NewSessions(s.sessionSize, s.sessionTTL)
	return s
}

// Resolver exposes the schema resolver.
func (s *Service) Resolver() *schema.Resolver { return s.resolver }

// CheckMember fails with apperr.ErrUnauthorized unless userID belongs to
// the team.
func (s *Service) CheckMember(ctx context.Context, userID, teamID string) error {
	return s.member(ctx, userID, teamID)
}

func (s *Service) member(ctx context.Context, userID, teamID string) error {
	_, err := s.authz.RequireMembership(ctx, userID, teamID)
	return err
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
