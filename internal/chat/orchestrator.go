// Package chat glues the context and memory stores to the external
// completion service: resolve the user, read both memories in parallel,
// build the prompt, call the model and persist the new turn pair into both
// stores.
package chat

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"backend/internal/clients"
	"backend/internal/identity"
	"backend/internal/models"
	"backend/internal/store"
)

// ErrUnresolvableIdentity marks a request whose identifiers cannot be mapped
// to any user key. It is a caller error, not an infrastructure fault.
var ErrUnresolvableIdentity = errors.New("unresolvable user identity")

// Completer is the external LLM boundary.
type Completer interface {
	Complete(ctx context.Context, messages []clients.ChatMessage) (string, error)
}

// Request carries one inbound chat query. UserID may be a document id hex,
// an email or a phone; FarmerID is the legacy phone-shaped secondary
// identifier some clients still send.
type Request struct {
	UserID   string
	FarmerID string
	Query    string
	Language string
}

// Reply is the orchestrator's answer plus the context it was grounded on.
type Reply struct {
	Answer      string            `json:"answer"`
	Language    string            `json:"language"`
	RecentTurns []models.ChatTurn `json:"recentTurns"`
}

type Orchestrator struct {
	users     *store.UserStore
	contexts  *store.UserContextStore
	memories  *store.MemoryStore
	completer Completer
	slice     int
}

func NewOrchestrator(users *store.UserStore, contexts *store.UserContextStore, memories *store.MemoryStore, completer Completer, memorySlice int) *Orchestrator {
	return &Orchestrator{
		users:     users,
		contexts:  contexts,
		memories:  memories,
		completer: completer,
		slice:     memorySlice,
	}
}

// Respond runs one chat turn end to end.
func (o *Orchestrator) Respond(ctx context.Context, req Request) (*Reply, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("chat: empty query")
	}

	user, err := o.users.FindByIdentifier(ctx, req.UserID, req.FarmerID)
	if err != nil && err != store.ErrNotFound {
		return nil, err
	}

	contextID, memoryKey := resolveKeys(user, req.UserID, req.FarmerID)
	if contextID.IsZero() && memoryKey == "" {
		return nil, ErrUnresolvableIdentity
	}

	var (
		userCtx *models.UserContext
		memory  []models.MemoryEntry
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		userCtx, err = o.contexts.Fetch(groupCtx, contextID)
		return err
	})
	group.Go(func() error {
		var err error
		memory, err = o.memories.GetEntries(groupCtx, memoryKey, o.slice)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	language := req.Language
	if language == "" && user != nil {
		language = user.PreferredLanguage
		if language == "" {
			language = user.Profile.Language
		}
	}

	answer, err := o.completer.Complete(ctx, buildMessages(userCtx, memory, req.Query, language))
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	turns := []models.ChatTurn{
		{Role: "user", Message: req.Query},
		{Role: "assistant", Message: answer},
	}
	profileHint := models.Profile{}
	if user != nil {
		profileHint = user.Profile
		if profileHint.Name == "" {
			profileHint.Name = user.Name
		}
		if profileHint.Email == "" {
			profileHint.Email = user.Email
		}
	}

	updated, err := o.contexts.AppendTurns(ctx, contextID, profileHint, turns)
	if err != nil {
		return nil, err
	}

	memoryEntries := []models.MemoryEntry{
		{Role: "user", Content: req.Query},
		{Role: "assistant", Content: answer, Metadata: map[string]interface{}{"language": language}},
	}
	if err := o.memories.AppendEntries(ctx, memoryKey, memoryEntries); err != nil {
		return nil, err
	}

	reply := &Reply{Answer: answer, Language: language}
	if updated != nil {
		reply.RecentTurns = updated.RecentTurns
	}
	return reply, nil
}

// resolveKeys derives the two store keys from whatever identity material the
// request carried. The context store is keyed by ObjectID; the memory store
// by the normalized string key, which may fall back to a phone for legacy
// clients that never had a document id.
func resolveKeys(user *models.User, userID, farmerID string) (primitive.ObjectID, string) {
	if user != nil {
		return user.ID, identity.NormalizeKey(user.ID.Hex(), farmerID)
	}
	contextID, _ := identity.ToObjectID(userID)
	return contextID, identity.NormalizeKey(userID, farmerID)
}
