package session

import (
	"context"
	"fmt"
	"sync"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseProvider verifies Firebase ID tokens and creates accounts via the
// Admin SDK. Password sign-in happens in the Firebase client SDK, so SignIn
// returns ErrUnsupported and callers fall back to their degraded paths.
type FirebaseProvider struct {
	client *fbauth.Client

	mu      sync.Mutex
	current *Session
	subs    map[int]func(Event)
	nextSub int
}

func NewFirebaseProvider(ctx context.Context, credentialsPath string) (*FirebaseProvider, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}

	opt := option.WithCredentialsFile(credentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}

	return &FirebaseProvider{
		client: client,
		subs:   make(map[int]func(Event)),
	}, nil
}

func (p *FirebaseProvider) Current(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, nil
	}
	s := *p.current
	return &s, nil
}

func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return nil, ErrUnsupported
}

func (p *FirebaseProvider) SignUp(ctx context.Context, email, password string, meta Metadata) (*Session, error) {
	params := (&fbauth.UserToCreate{}).
		Email(email).
		Password(password)
	if meta.Name != "" {
		params = params.DisplayName(meta.Name)
	}

	user, err := p.client.CreateUser(ctx, params)
	if err != nil {
		if fbauth.IsEmailAlreadyExists(err) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create firebase user: %w", err)
	}

	sess := &Session{
		SubjectID: user.UID,
		Email:     email,
		Metadata:  Metadata{Name: meta.Name, Role: meta.Role},
	}

	p.mu.Lock()
	p.current = sess
	p.mu.Unlock()

	copied := *sess
	p.emit(Event{Kind: Established, Session: &copied})
	return sess, nil
}

func (p *FirebaseProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()

	p.emit(Event{Kind: Terminated})
	return nil
}

// Verify validates a Firebase ID token and maps it to a Session.
func (p *FirebaseProvider) Verify(ctx context.Context, token string) (*Session, error) {
	decoded, err := p.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	sess := &Session{SubjectID: decoded.UID, Token: token}
	if email, ok := decoded.Claims["email"].(string); ok {
		sess.Email = email
	}
	if name, ok := decoded.Claims["name"].(string); ok {
		sess.Metadata.Name = name
	}
	if role, ok := decoded.Claims["role"].(string); ok {
		sess.Metadata.Role = role
	}

	p.mu.Lock()
	p.current = sess
	p.mu.Unlock()

	return sess, nil
}

func (p *FirebaseProvider) Subscribe(fn func(Event)) (cancel func()) {
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

func (p *FirebaseProvider) emit(ev Event) {
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
