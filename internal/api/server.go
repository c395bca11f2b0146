package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dynastra/internal/auth"
	"dynastra/internal/config"
	"dynastra/internal/game"
	"dynastra/internal/notify"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type contextKey string

const userContextKey contextKey = "user"

type UserContext struct {
	UserID uuid.UUID
	Email  string
	Token  string
}

type Server struct {
	cfg    config.APIConfig
	log    *slog.Logger
	auth   *auth.SupabaseClient
	game   *game.Service
	broker *notify.Broker
	mux    *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, authClient *auth.SupabaseClient, gameSvc *game.Service, broker *notify.Broker) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		log:    logger,
		auth:   authClient,
		game:   gameSvc,
		broker: broker,
		mux:    chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/dynasties", s.handleCreateDynasty)
			r.Get("/dynasties/me", s.handleMyDynasty)
			r.Get("/dynasties/{id}", s.handleGetDynasty)
			r.Patch("/dynasties/{id}/motto", s.handleUpdateMotto)
			r.Get("/dynasties/{id}/characters", s.handleListCharacters)
			r.Get("/dynasties/{id}/wealth", s.handleWealthHistory)

			r.Post("/characters", s.handleCreateCharacter)
			r.Get("/characters/{id}", s.handleGetCharacter)
			r.Get("/characters/{id}/inventory", s.handleInventory)
			r.Get("/characters/{id}/transactions", s.handleCharacterTransactions)
			r.Post("/characters/{id}/move", s.handleMoveCharacter)
			r.Post("/characters/{id}/kill", s.handleKillCharacter)

			r.Get("/regions", s.handleRegions)
			r.Get("/regions/{id}/market", s.handleRegionOverview)
			r.Get("/regions/{id}/listings", s.handleListings)
			r.Get("/regions/{id}/items/{item_id}/prices", s.handlePriceHistory)
			r.Get("/regions/{id}/items/{item_id}/analytics", s.handlePriceAnalytics)

			r.Post("/listings", s.handleCreateListing)
			r.Delete("/listings/{id}", s.handleCancelListing)
			r.Post("/listings/{id}/purchase", s.handlePurchase)

			r.Get("/market/events", s.handleMarketEvents)
			r.Post("/market/events", s.handleCreateMarketEvent)
			r.Get("/market/arbitrage", s.handleArbitrage)

			r.Get("/leaderboard", s.handleLeaderboard)
			r.Get("/stream", s.handleStream)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := s.auth.VerifyAccessToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Sprintf("invalid token: %v", err))
			return
		}
		userID, err := user.UUID()
		if err != nil {
			writeError(w, http.StatusUnauthorized, "malformed user id in token")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, UserContext{
			UserID: userID,
			Email:  user.Email,
			Token:  token,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (UserContext, error) {
	v := ctx.Value(userContextKey)
	user, ok := v.(UserContext)
	if !ok || user.UserID == uuid.Nil {
		return UserContext{}, errors.New("missing auth context")
	}
	return user, nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.SignUp(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.Login(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleCreateDynasty(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Name        string `json:"name"`
		Motto       string `json:"motto"`
		FounderName string `json:"founder_name"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.CreateDynasty(r.Context(), game.CreateDynastyInput{
		UserID:      user.UserID,
		Name:        in.Name,
		Motto:       in.Motto,
		FounderName: in.FounderName,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleMyDynasty(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.UserDynasty(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDynasty(w http.ResponseWriter, r *http.Request) {
	dynastyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dynasty id")
		return
	}
	out, err := s.game.GetDynasty(r.Context(), dynastyID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateMotto(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	dynastyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dynasty id")
		return
	}
	var in struct {
		Motto string `json:"motto"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.UpdateMotto(r.Context(), user.UserID, dynastyID, in.Motto); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleWealthHistory(w http.ResponseWriter, r *http.Request) {
	dynastyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dynasty id")
		return
	}
	out, err := s.game.WealthHistory(r.Context(), dynastyID, queryInt32(r, "limit", 90))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": out})
}

func (s *Server) handleCharacterTransactions(w http.ResponseWriter, r *http.Request) {
	characterID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid character id")
		return
	}
	out, err := s.game.CharacterTransactions(r.Context(), characterID,
		queryInt32(r, "limit", 50), queryInt32(r, "offset", 0))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	dynastyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dynasty id")
		return
	}
	aliveOnly := r.URL.Query().Get("alive") == "1"
	out, err := s.game.ListCharacters(r.Context(), dynastyID, aliveOnly)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"characters": out})
}

func (s *Server) handleCreateCharacter(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		DynastyID uuid.UUID  `json:"dynasty_id"`
		Name      string     `json:"name"`
		ParentID  *uuid.UUID `json:"parent_character_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.CreateCharacter(r.Context(), game.CreateCharacterInput{
		UserID:    user.UserID,
		DynastyID: in.DynastyID,
		Name:      in.Name,
		ParentID:  in.ParentID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetCharacter(w http.ResponseWriter, r *http.Request) {
	characterID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid character id")
		return
	}
	out, err := s.game.GetCharacter(r.Context(), characterID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	characterID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid character id")
		return
	}
	out, err := s.game.Inventory(r.Context(), characterID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"inventory": out})
}

func (s *Server) handleMoveCharacter(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	characterID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid character id")
		return
	}
	var in struct {
		RegionID uuid.UUID `json:"region_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.MoveCharacter(r.Context(), user.UserID, characterID, in.RegionID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.ListRegions(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"regions": out})
}

func (s *Server) handleRegionOverview(w http.ResponseWriter, r *http.Request) {
	regionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid region id")
		return
	}
	out, err := s.game.RegionOverview(r.Context(), regionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	regionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid region id")
		return
	}
	q := game.ListingsQuery{
		RegionID:     regionID,
		Category:     strings.TrimSpace(r.URL.Query().Get("category")),
		IncludeGhost: r.URL.Query().Get("ghost") != "0",
		Limit:        queryInt32(r, "limit", 50),
		Offset:       queryInt32(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("item_id"); raw != "" {
		itemID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid item id")
			return
		}
		q.ItemID = &itemID
	}
	if raw := r.URL.Query().Get("max_price"); raw != "" {
		maxPrice, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid max price")
			return
		}
		q.MaxPrice = &maxPrice
	}
	out, err := s.game.Listings(r.Context(), q)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": out})
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		CharacterID    uuid.UUID       `json:"character_id"`
		RegionID       uuid.UUID       `json:"region_id"`
		ItemID         uuid.UUID       `json:"item_id"`
		Price          decimal.Decimal `json:"price"`
		Quantity       int32           `json:"quantity"`
		ExpiresInHours int32           `json:"expires_in_hours"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.CreateListing(r.Context(), game.CreateListingInput{
		UserID:      user.UserID,
		CharacterID: in.CharacterID,
		RegionID:    in.RegionID,
		ItemID:      in.ItemID,
		Price:       in.Price,
		Quantity:    in.Quantity,
		ExpiresIn:   time.Duration(in.ExpiresInHours) * time.Hour,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleCancelListing(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	listingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	if err := s.game.CancelListing(r.Context(), user.UserID, listingID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	listingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	var in struct {
		CharacterID uuid.UUID `json:"character_id"`
		Quantity    int32     `json:"quantity"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.Purchase(r.Context(), game.PurchaseInput{
		UserID:      user.UserID,
		ListingID:   listingID,
		CharacterID: in.CharacterID,
		Quantity:    in.Quantity,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleKillCharacter(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	characterID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid character id")
		return
	}
	// The cause body is optional.
	var in struct {
		Cause string `json:"cause"`
	}
	if err := decodeJSON(r, &in); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.KillCharacter(r.Context(), user.UserID, characterID, in.Cause)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateMarketEvent(w http.ResponseWriter, r *http.Request) {
	var in struct {
		EventType     string          `json:"event_type"`
		Severity      int32           `json:"severity"`
		RegionID      *uuid.UUID      `json:"region_id"`
		ItemID        *uuid.UUID      `json:"item_id"`
		Description   string          `json:"description"`
		DurationHours int32           `json:"duration_hours"`
		PriceModifier decimal.Decimal `json:"price_modifier"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.CreateMarketEvent(r.Context(), game.CreateMarketEventInput{
		EventType:     game.MarketEventType(strings.TrimSpace(in.EventType)),
		Severity:      in.Severity,
		RegionID:      in.RegionID,
		ItemID:        in.ItemID,
		Description:   in.Description,
		Duration:      time.Duration(in.DurationHours) * time.Hour,
		PriceModifier: in.PriceModifier,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleMarketEvents(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.ActiveEvents(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (s *Server) handleArbitrage(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Arbitrage(r.Context(), queryInt32(r, "limit", 10))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"routes": out})
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	regionID, itemID, ok := marketPathIDs(w, r)
	if !ok {
		return
	}
	out, err := s.game.PriceHistory(r.Context(), regionID, itemID, queryInt32(r, "days", 30))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prices": out})
}

func (s *Server) handlePriceAnalytics(w http.ResponseWriter, r *http.Request) {
	regionID, itemID, ok := marketPathIDs(w, r)
	if !ok {
		return
	}
	out, err := s.game.PriceAnalytics(r.Context(), regionID, itemID, queryInt32(r, "days", 30))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	metric := game.LeaderboardMetric(strings.TrimSpace(r.URL.Query().Get("metric")))
	out, err := s.game.Leaderboard(r.Context(), metric, queryInt32(r, "limit", 25))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": out})
}

// handleStream pushes game notifications over server-sent events. One
// connection follows one topic: deaths, trades or events.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	topic := strings.TrimSpace(r.URL.Query().Get("topic"))
	switch topic {
	case "deaths", "trades", "events":
	default:
		writeError(w, http.StatusBadRequest, "topic must be deaths, trades or events")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch, cancel := s.broker.Subscribe(topic)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case env, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(env)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", env.Topic, data)
			flusher.Flush()
		}
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrDuplicateDynasty):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrInsufficientInventory),
		errors.Is(err, game.ErrInsufficientQuantity),
		errors.Is(err, game.ErrListingExpired),
		errors.Is(err, game.ErrSelfTrade),
		errors.Is(err, game.ErrInvalidMetric),
		errors.Is(err, game.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func queryInt32(r *http.Request, key string, fallback int32) int32 {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return fallback
	}
	return int32(v)
}

func marketPathIDs(w http.ResponseWriter, r *http.Request) (regionID, itemID uuid.UUID, ok bool) {
	regionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid region id")
		return regionID, itemID, false
	}
	itemID, err = uuid.Parse(chi.URLParam(r, "item_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return regionID, itemID, false
	}
	return regionID, itemID, true
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
