package auth

import (
	"context"
	"errors"
	"log"

	"github.com/showfolio/showfolio-backend/internal/identity"
	"github.com/showfolio/showfolio-backend/internal/session"
)

// ProfileStore is the subset of the profile repository the resolver and
// manager need.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*identity.Identity, error)
	Create(ctx context.Context, ident identity.Identity) error
	Upsert(ctx context.Context, ident identity.Identity) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]identity.Identity, error)
}

// Resolver maps a session to an Identity.
//
// Precedence: the distinguished admin address wins over everything; then a
// stored profile row; then sign-up metadata carried on the session; then a
// default derived from the email address. Resolve never fails — a remote
// error at any step degrades to the next step and is logged.
type Resolver struct {
	profiles   ProfileStore
	adminEmail string
	adminName  string
}

func NewResolver(profiles ProfileStore, adminEmail, adminName string) *Resolver {
	return &Resolver{
		profiles:   profiles,
		adminEmail: adminEmail,
		adminName:  adminName,
	}
}

func (r *Resolver) Resolve(ctx context.Context, sess *session.Session) identity.Identity {
	if sess.Email == r.adminEmail {
		return r.resolveAdmin(ctx, sess)
	}

	stored, err := r.profiles.GetByID(ctx, sess.SubjectID)
	if err == nil {
		// Stored role and name are used verbatim.
		ident := *stored
		if ident.Email == "" {
			ident.Email = sess.Email
		}
		return ident
	}
	if !errors.Is(err, identity.ErrProfileNotFound) {
		log.Printf("auth: profile lookup for %s failed: %v", sess.SubjectID, err)
	}

	if sess.Metadata.Name != "" || sess.Metadata.Role != "" {
		ident := r.fromMetadata(sess)
		if err := r.profiles.Create(ctx, ident); err != nil && !errors.Is(err, identity.ErrProfileExists) {
			log.Printf("auth: profile create for %s failed: %v", sess.SubjectID, err)
		}
		return ident
	}

	return identity.Identity{
		ID:    sess.SubjectID,
		Name:  identity.NameFromEmail(sess.Email),
		Email: sess.Email,
		Role:  identity.RoleUser,
	}
}

// resolveAdmin forces role admin and the fixed display name for the
// distinguished address, writing the profile back when it disagrees. A
// write-back failure never fails the resolution.
func (r *Resolver) resolveAdmin(ctx context.Context, sess *session.Session) identity.Identity {
	ident := identity.Identity{
		ID:    sess.SubjectID,
		Name:  r.adminName,
		Email: r.adminEmail,
		Role:  identity.RoleAdmin,
	}

	stored, err := r.profiles.GetByID(ctx, sess.SubjectID)
	if err == nil && stored.Role == identity.RoleAdmin && stored.Name == r.adminName {
		return ident
	}
	if err != nil && !errors.Is(err, identity.ErrProfileNotFound) {
		log.Printf("auth: admin profile lookup failed: %v", err)
	}

	if err := r.profiles.Upsert(ctx, ident); err != nil {
		log.Printf("auth: admin profile upsert failed: %v", err)
	}
	return ident
}

func (r *Resolver) fromMetadata(sess *session.Session) identity.Identity {
	name := sess.Metadata.Name
	if name == "" {
		name = identity.NameFromEmail(sess.Email)
	}

	role := identity.Role(sess.Metadata.Role)
	if role != identity.RoleAdmin && role != identity.RoleUser {
		role = identity.RoleUser
	}

	return identity.Identity{
		ID:    sess.SubjectID,
		Name:  name,
		Email: sess.Email,
		Role:  role,
	}
}
