package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// LocalProvider implements Provider against an auth_accounts table,
// issuing HS256 JWTs for established sessions.
type LocalProvider struct {
	accounts *accounts
	secret   []byte
	tokenTTL time.Duration

	mu      sync.Mutex
	current *Session
	subs    map[int]func(Event)
	nextSub int
}

func NewLocalProvider(db *pgxpool.Pool, secret string, tokenTTL time.Duration) *LocalProvider {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &LocalProvider{
		accounts: &accounts{db: db},
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		subs:     make(map[int]func(Event)),
	}
}

func (p *LocalProvider) Current(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, nil
	}
	s := *p.current
	return &s, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	acc, err := p.accounts.getByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	sess, err := p.establish(acc)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string, meta Metadata) (*Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := meta.Role
	if role == "" {
		role = "user"
	}

	acc, err := p.accounts.create(ctx, email, string(hash), meta.Name, role)
	if err != nil {
		return nil, err
	}

	sess, err := p.establish(acc)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (p *LocalProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()

	p.emit(Event{Kind: Terminated})
	return nil
}

// Verify parses and validates a bearer token issued by this provider.
func (p *LocalProvider) Verify(ctx context.Context, token string) (*Session, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidCredentials
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidCredentials
	}

	sess := &Session{Token: token}
	if sub, ok := claims["sub"].(string); ok {
		sess.SubjectID = sub
	}
	if email, ok := claims["email"].(string); ok {
		sess.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		sess.Metadata.Name = name
	}
	if role, ok := claims["role"].(string); ok {
		sess.Metadata.Role = role
	}
	if sess.SubjectID == "" {
		return nil, ErrInvalidCredentials
	}
	return sess, nil
}

func (p *LocalProvider) Subscribe(fn func(Event)) (cancel func()) {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *LocalProvider) establish(acc *account) (*Session, error) {
	token, err := p.generateToken(acc)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	sess := &Session{
		SubjectID: acc.ID,
		Email:     acc.Email,
		Token:     token,
		Metadata:  Metadata{Name: acc.Name, Role: acc.Role},
	}

	p.mu.Lock()
	p.current = sess
	p.mu.Unlock()

	copied := *sess
	p.emit(Event{Kind: Established, Session: &copied})
	return sess, nil
}

func (p *LocalProvider) generateToken(acc *account) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   acc.ID,
		"email": acc.Email,
		"name":  acc.Name,
		"role":  acc.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(p.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

func (p *LocalProvider) emit(ev Event) {
	p.mu.Lock()
	fns := make([]func(Event), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
