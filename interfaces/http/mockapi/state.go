package mockapi

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// State is the in-memory dataset behind the mock API. It exists so demo
// mode and local development work without the production service; nothing
// here survives a restart on purpose.
type State struct {
	mu        sync.Mutex
	jwtSecret []byte
	users     []User
	tokens    map[string]string // token -> user email
	companies []Company
	updates   []Update
	org       Organization
	members   []Member
	plan      Plan
}

// User is a mock account that can sign in.
type User struct {
	ID       string `yaml:"id"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	OrgID    string `yaml:"org_id"`
}

// Company is a mock tracked company.
type Company struct {
	ID            string    `yaml:"id"`
	Name          string    `yaml:"name"`
	Domain        string    `yaml:"domain"`
	Industry      string    `yaml:"industry"`
	IsPriority    bool      `yaml:"is_priority"`
	Frequency     string    `yaml:"frequency"`
	Tags          []string  `yaml:"tags"`
	LastUpdatedAt time.Time `yaml:"last_updated_at"`
}

// Update is a mock feed entry.
type Update struct {
	ID         string    `yaml:"id"`
	CompanyID  string    `yaml:"company_id"`
	Headline   string    `yaml:"headline"`
	Importance string    `yaml:"importance"`
	IsRead     bool      `yaml:"is_read"`
	DetectedAt time.Time `yaml:"detected_at"`
}

// Organization is the mock workspace.
type Organization struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Domain string `yaml:"domain"`
}

// Member is a mock teammate.
type Member struct {
	ID    string `yaml:"id"`
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
	Role  string `yaml:"role"`
}

// Plan is the mock subscription.
type Plan struct {
	Name          string    `yaml:"name"`
	Seats         int       `yaml:"seats"`
	SeatsUsed     int       `yaml:"seats_used"`
	TrackingLimit int       `yaml:"tracking_limit"`
	RenewsAt      time.Time `yaml:"renews_at"`
}

// Fixture is the YAML seed file shape.
type Fixture struct {
	Users        []User       `yaml:"users"`
	Companies    []Company    `yaml:"companies"`
	Updates      []Update     `yaml:"updates"`
	Organization Organization `yaml:"organization"`
	Members      []Member     `yaml:"members"`
	Plan         Plan         `yaml:"plan"`
}

// NewState builds the default demo dataset.
func NewState(jwtSecret string) *State {
	now := time.Now().UTC()
	return &State{
		jwtSecret: []byte(jwtSecret),
		tokens:    map[string]string{},
		users: []User{
			{ID: "u-demo", Email: "demo@prospectwatch.io", Password: "demo", Name: "Demo User", OrgID: "org-demo"},
		},
		companies: []Company{
			{ID: "c-1", Name: "Acme Robotics", Domain: "acme.example", Industry: "manufacturing", IsPriority: true, Frequency: "daily", Tags: []string{"robotics"}, LastUpdatedAt: now.Add(-2 * time.Hour)},
			{ID: "c-2", Name: "Globex", Domain: "globex.example", Industry: "energy", Frequency: "weekly", LastUpdatedAt: now.Add(-48 * time.Hour)},
		},
		updates: []Update{
			{ID: "up-1", CompanyID: "c-1", Headline: "Acme Robotics raised a Series C", Importance: "critical", DetectedAt: now.Add(-3 * time.Hour)},
			{ID: "up-2", CompanyID: "c-2", Headline: "Globex opened a Lisbon office", Importance: "medium", DetectedAt: now.Add(-30 * time.Hour)},
		},
		org: Organization{ID: "org-demo", Name: "Demo Workspace", Domain: "prospectwatch.io"},
		members: []Member{
			{ID: "u-demo", Email: "demo@prospectwatch.io", Name: "Demo User", Role: "owner"},
		},
		plan: Plan{Name: "growth", Seats: 10, SeatsUsed: 1, TrackingLimit: 100, RenewsAt: now.AddDate(1, 0, 0)},
	}
}

// LoadFixture replaces the seed data with the contents of a YAML file.
func (s *State) LoadFixture(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading fixture: %w", err)
	}
	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return fmt.Errorf("parsing fixture: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(fixture.Users) > 0 {
		s.users = fixture.Users
	}
	if len(fixture.Companies) > 0 {
		s.companies = fixture.Companies
	}
	if len(fixture.Updates) > 0 {
		s.updates = fixture.Updates
	}
	if fixture.Organization.ID != "" {
		s.org = fixture.Organization
	}
	if len(fixture.Members) > 0 {
		s.members = fixture.Members
	}
	if fixture.Plan.Name != "" {
		s.plan = fixture.Plan
	}
	return nil
}

// Authenticate checks credentials and issues a signed bearer token.
func (s *State) Authenticate(email, password string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email && u.Password == password {
			claims := jwt.MapClaims{
				"sub": u.ID,
				"exp": time.Now().Add(24 * time.Hour).Unix(),
				"jti": uuid.NewString(),
			}
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
			if err != nil {
				return "", false
			}
			s.tokens[token] = u.Email
			return token, true
		}
	}
	return "", false
}

// UserForToken resolves a live token. Revoked and forged tokens fail.
func (s *State) UserForToken(token string) (User, bool) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return User{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.tokens[token]
	if !ok {
		return User{}, false
	}
	for _, u := range s.users {
		if u.Email == email {
			return u, true
		}
	}
	return User{}, false
}

// Revoke invalidates a token.
func (s *State) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// RevokeAll invalidates every issued token, simulating a server-side
// session purge.
func (s *State) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]string{}
}

// SetTrackingLimit overrides the plan's company limit.
func (s *State) SetTrackingLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan.TrackingLimit = n
}
