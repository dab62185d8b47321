// internal/table/manager.go
//
// Manager owns every table: creation, seat assignment, reconnection, the
// Charleston, turn flow, and teardown. The registry maps are guarded by the
// manager lock; everything inside one table is serialized by that table's
// own lock, so tables progress independently.
package table

import (
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tilewire/mahjong/internal/audit"
	"github.com/tilewire/mahjong/internal/auth"
	"github.com/tilewire/mahjong/internal/charleston"
	"github.com/tilewire/mahjong/internal/config"
	"github.com/tilewire/mahjong/internal/fairness"
	"github.com/tilewire/mahjong/internal/protocol"
	"github.com/tilewire/mahjong/internal/rules"
	"github.com/tilewire/mahjong/internal/tiles"
)

// inviteAlphabet avoids visually ambiguous characters (0/O, 1/I/L).
const (
	inviteAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	inviteLength   = 6
)

type Manager struct {
	log   *logrus.Logger
	cfg   config.Config
	clock quartz.Clock
	eval  rules.Evaluator
	sinks []audit.Sink

	// mu guards the registry maps. When a table lock is also needed the
	// table lock is taken first; m.mu is never held while acquiring t.mu.
	mu       sync.Mutex
	tables   map[uuid.UUID]*Table
	invites  map[string]uuid.UUID
	sessions map[uuid.UUID]*PlayerSession
}

func NewManager(log *logrus.Logger, cfg config.Config, clock quartz.Clock, eval rules.Evaluator, sinks ...audit.Sink) *Manager {
	return &Manager{
		log:      log,
		cfg:      cfg,
		clock:    clock,
		eval:     eval,
		sinks:    sinks,
		tables:   make(map[uuid.UUID]*Table),
		invites:  make(map[string]uuid.UUID),
		sessions: make(map[uuid.UUID]*PlayerSession),
	}
}

// newInviteCode generates a globally unique shareable code. Caller holds
// m.mu.
func (m *Manager) newInviteCode() (string, error) {
	buf := make([]byte, inviteLength)
	for attempt := 0; attempt < 10; attempt++ {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("invite code entropy: %w", err)
		}
		code := make([]byte, inviteLength)
		for i, b := range buf {
			code[i] = inviteAlphabet[int(b)%len(inviteAlphabet)]
		}
		if _, taken := m.invites[string(code)]; !taken {
			return string(code), nil
		}
	}
	return "", fmt.Errorf("invite code space exhausted")
}

func (m *Manager) tableByID(id uuid.UUID) *Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tables[id]
}

func (m *Manager) tableByInvite(code string) *Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.invites[code]
	if !ok {
		return nil
	}
	return m.tables[id]
}

// CreateTable creates a table, seats the caller at seat 0 (the dealer), and
// sends table_created carrying the invite code, session token, and the
// published seed commitment. The server secret is generated here and held
// privately until the game ends.
func (m *Manager) CreateTable(conn Conn, displayName, clientSeed string) (*PlayerSession, error) {
	secret, err := fairness.GenerateServerSeed()
	if err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}

	t := &Table{
		ID:        uuid.New(),
		CreatedAt: m.clock.Now(),
		Status:    StatusCreated,
		Seed: SeedMaterial{
			ServerSecret: secret,
			Commitment:   fairness.Commit(secret),
			ClientSeed:   clientSeed,
		},
	}
	t.Chain, err = audit.NewChain(t.ID, m.sinks...)
	if err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}

	m.mu.Lock()
	t.InviteCode, err = m.newInviteCode()
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.tables[t.ID] = t
	m.invites[t.InviteCode] = t.ID
	m.mu.Unlock()

	t.Chain.Append("table_created", map[string]any{
		"inviteCode": t.InviteCode,
		"commitment": t.Seed.Commitment,
	}, nil, "", audit.HashState(t.Seed.Commitment))

	t.mu.Lock()
	sess, token, err := m.seatPlayerLocked(t, conn, 0, displayName)
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}
	t.Status = StatusFilling

	created := protocol.New(protocol.TypeTableCreated, map[string]any{
		"tableId":      t.ID.String(),
		"inviteCode":   t.InviteCode,
		"seat":         sess.Seat,
		"sessionToken": token,
		"commitment":   t.Seed.Commitment,
	})
	sess.send(created)
	t.broadcast(protocol.New(protocol.TypePlayerCountUpdate, map[string]any{"count": t.seatedCount()}))
	t.mu.Unlock()

	m.log.WithFields(logrus.Fields{"table_id": t.ID, "invite": t.InviteCode}).Info("table created")
	return sess, nil
}

// seatPlayerLocked creates a session at the given seat and registers it.
// Caller holds t.mu.
func (m *Manager) seatPlayerLocked(t *Table, conn Conn, seat int, displayName string) (*PlayerSession, string, error) {
	if displayName == "" {
		displayName = fmt.Sprintf("player %d", seat)
	}
	sess := &PlayerSession{
		ID:          uuid.New(),
		TableID:     t.ID,
		Seat:        seat,
		DisplayName: displayName,
		Status:      ConnConnected,
		Conn:        conn,
	}
	token, err := auth.CreateSessionToken(auth.SessionClaims{
		SessionID: sess.ID,
		TableID:   t.ID,
		Seat:      seat,
	})
	if err != nil {
		return nil, "", fmt.Errorf("session token: %w", err)
	}
	t.Sessions[seat] = sess

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	t.Chain.Append("player_joined", map[string]any{
		"seat":        seat,
		"displayName": displayName,
	}, &sess.ID, "", "")
	return sess, token, nil
}

// JoinTable seats or reattaches a player. Reconnection takes two paths: a
// valid session token rebinds its original seat directly; failing that, a
// matching display name on a currently disconnected seat is accepted as a
// fallback. A fifth fresh join is rejected distinctly from a bad code.
func (m *Manager) JoinTable(conn Conn, inviteCode, displayName, clientSeed, sessionToken string) (*PlayerSession, bool) {
	if sessionToken != "" {
		if sess, ok := m.rejoinWithToken(conn, sessionToken); ok {
			return sess, true
		}
		// Fall through to the invite path; the token may be for a table
		// that no longer exists.
	}

	t := m.tableByInvite(inviteCode)
	if t == nil {
		conn.Send(protocol.NewRejected(protocol.CodeInvalidInviteCode))
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Status == StatusFinished {
		conn.Send(protocol.NewRejected(protocol.CodeInvalidInviteCode))
		return nil, false
	}

	// Display-name fallback reconnection: an in-progress table with a
	// disconnected seat under this name takes the joiner back.
	if t.Game != nil && displayName != "" {
		for _, s := range t.Sessions {
			if s != nil && s.DisplayName == displayName && !s.Connected() {
				m.reattachLocked(t, s, conn)
				return s, true
			}
		}
	}

	if t.Game != nil {
		conn.Send(protocol.NewRejected(protocol.CodeGameInProgress))
		return nil, false
	}

	seat := -1
	for i, s := range t.Sessions {
		if s == nil {
			seat = i
			break
		}
	}
	if seat == -1 {
		conn.Send(protocol.NewRejected(protocol.CodeTableFull))
		return nil, false
	}

	sess, token, err := m.seatPlayerLocked(t, conn, seat, displayName)
	if err != nil {
		m.log.WithError(err).Error("seat player")
		conn.Send(protocol.NewError(protocol.CodeInternal, "failed to join table"))
		return nil, false
	}
	if clientSeed != "" {
		// Every contributed seed folds into the combined client seed.
		if t.Seed.ClientSeed == "" {
			t.Seed.ClientSeed = clientSeed
		} else {
			t.Seed.ClientSeed += ":" + clientSeed
		}
	}
	if t.teardownTimer != nil {
		t.teardownTimer.Stop()
		t.teardownTimer = nil
	}

	sess.send(protocol.New(protocol.TypeTableJoined, map[string]any{
		"tableId":      t.ID.String(),
		"seat":         seat,
		"sessionToken": token,
		"commitment":   t.Seed.Commitment,
	}))
	t.broadcast(protocol.New(protocol.TypePlayerCountUpdate, map[string]any{"count": t.seatedCount()}))
	t.broadcast(protocol.New(protocol.TypePlayersUpdate, t.playersPayload()))

	if t.seatedCount() == numSeats {
		m.startGameLocked(t)
	}
	return sess, true
}

// rejoinWithToken rebinds a session token to its seat. Rejoining while
// already connected is a no-op on seat assignment; the new connection
// simply replaces the old one.
func (m *Manager) rejoinWithToken(conn Conn, token string) (*PlayerSession, bool) {
	claims, err := auth.AuthenticateSessionToken(token)
	if err != nil {
		m.log.WithError(err).Warn("rejected session token")
		return nil, false
	}

	m.mu.Lock()
	sess := m.sessions[claims.SessionID]
	m.mu.Unlock()
	if sess == nil || sess.TableID != claims.TableID || sess.Seat != claims.Seat {
		return nil, false
	}
	t := m.tableByID(claims.TableID)
	if t == nil {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status == StatusFinished {
		return nil, false
	}
	m.reattachLocked(t, sess, conn)
	return sess, true
}

// reattachLocked binds a new connection to an existing session, cancelling
// its grace timer in the same serialized operation so a late-firing timer
// cannot mark the seat disconnected. Resumes the table if this was the last
// missing seat. Caller holds t.mu.
func (m *Manager) reattachLocked(t *Table, sess *PlayerSession, conn Conn) {
	sess.cancelGraceTimer()
	sess.graceEpoch++
	sess.Conn = conn
	sess.Status = ConnConnected
	if t.teardownTimer != nil {
		t.teardownTimer.Stop()
		t.teardownTimer = nil
	}

	t.Chain.Append("player_reconnected", map[string]any{"seat": sess.Seat}, &sess.ID, "", "")

	payload := map[string]any{
		"tableId":    t.ID.String(),
		"seat":       sess.Seat,
		"commitment": t.Seed.Commitment,
		"status":     t.Status,
	}
	if t.Game != nil {
		payload["hand"] = t.Game.Hands[sess.Seat]
		payload["turn"] = t.Game.Turn
		payload["discards"] = t.Game.Discards
	}
	if t.Charleston != nil {
		payload["charleston"] = m.charlestonPayload(t)
	}
	sess.send(protocol.New(protocol.TypeTableJoined, payload))
	t.broadcast(protocol.New(protocol.TypePlayersUpdate, t.playersPayload()))

	if t.Status == StatusPaused && !t.anyDisconnected() && t.attachedCount() == numSeats {
		t.Status = StatusPlaying
		t.Chain.Append("game_resumed", nil, nil, "", "")
		t.broadcast(protocol.New(protocol.TypeGameResumed, nil))
		m.log.WithField("table_id", t.ID).Info("table resumed")
	}
}

// startGameLocked deals the table the instant the fourth seat fills; this
// transition happens exactly once. Caller holds t.mu.
func (m *Manager) startGameLocked(t *Table) {
	nonce := t.Seed.ShuffleNonce
	deal, err := tiles.DealGame(t.Seed.ServerSecret, t.Seed.ClientSeed, nonce, 0)
	if err != nil {
		m.log.WithError(err).Error("deal failed")
		t.broadcast(protocol.NewError(protocol.CodeInternal, "failed to start game"))
		return
	}
	t.Seed.ShuffleNonce++

	before := audit.HashState(t.Status)
	t.Game = &GameState{
		DealerSeat:   deal.DealerSeat,
		ShuffleNonce: nonce,
		Dice:         deal.Dice,
		Hands:        deal.Hands,
		DrawPile:     deal.DrawPile,
		Reserved:     deal.Reserved,
	}
	t.Charleston = charleston.New(m.cfg.BlindPassAll)
	t.Status = StatusPlaying

	t.Chain.Append("game_started", map[string]any{
		"dealerSeat": deal.DealerSeat,
		"dice":       deal.Dice,
		"nonce":      nonce,
	}, nil, before, audit.HashState(t.Game.Turn))

	for seat, s := range t.Sessions {
		if s == nil {
			continue
		}
		s.send(protocol.New(protocol.TypeGameStarted, map[string]any{
			"seat":       seat,
			"dealerSeat": deal.DealerSeat,
			"dice":       deal.Dice,
			"hand":       t.Game.Hands[seat],
			"commitment": t.Seed.Commitment,
		}))
	}
	t.broadcast(protocol.New(protocol.TypeCharlestonState, m.charlestonPayload(t)))
	m.log.WithField("table_id", t.ID).Info("game started")
}

// LeaveTable explicitly frees the caller's seat. Unlike a dropped
// connection there is no grace period; the seat opens immediately.
func (m *Manager) LeaveTable(sess *PlayerSession) {
	t := m.tableByID(sess.TableID)
	if t == nil {
		return
	}

	t.mu.Lock()
	sess.cancelGraceTimer()
	sess.graceEpoch++
	if t.Sessions[sess.Seat] == sess {
		t.Sessions[sess.Seat] = nil
	}
	t.Chain.Append("player_left", map[string]any{"seat": sess.Seat}, &sess.ID, "", "")
	t.broadcast(protocol.New(protocol.TypePlayerCountUpdate, map[string]any{"count": t.seatedCount()}))
	t.broadcast(protocol.New(protocol.TypePlayersUpdate, t.playersPayload()))

	// A seat leaving mid-game cannot be refilled; pause until teardown or
	// an operator decision.
	if t.Game != nil && t.Status == StatusPlaying {
		t.Status = StatusPaused
		t.broadcast(protocol.New(protocol.TypeGamePaused, map[string]any{"reason": "player_left"}))
	}
	abandoned := t.attachedCount() == 0
	if abandoned {
		m.scheduleTeardownLocked(t)
	}
	t.mu.Unlock()

	m.mu.Lock()
	delete(m.sessions, sess.ID)
	m.mu.Unlock()
}

// HandleDisconnect is called when a connection's read loop exits. Before
// the game starts the seat frees immediately; after, a grace timer absorbs
// transient drops (page reloads) before the seat is marked disconnected and
// the table pauses.
func (m *Manager) HandleDisconnect(sess *PlayerSession, conn Conn) {
	t := m.tableByID(sess.TableID)
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if sess.Conn != conn {
		// A newer connection already reattached; this drop is stale.
		return
	}

	if t.Game == nil {
		// No game yet: the seat frees immediately.
		t.mu.Unlock()
		m.LeaveTable(sess)
		t.mu.Lock()
		return
	}

	sess.Conn = nil
	sess.Status = ConnGracePeriod
	sess.DisconnectedAt = m.clock.Now()
	sess.graceEpoch++
	epoch := sess.graceEpoch

	sess.graceTimer = m.clock.AfterFunc(m.cfg.GracePeriod, func() {
		m.graceExpired(t, sess, epoch)
	})
	m.log.WithFields(logrus.Fields{"table_id": t.ID, "seat": sess.Seat}).Info("seat entered grace period")
}

// graceExpired runs when a grace timer fires without a reconnection.
func (m *Manager) graceExpired(t *Table, sess *PlayerSession, epoch int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sess.graceEpoch != epoch || sess.Status != ConnGracePeriod {
		// Reconnected (or left) before we acquired the lock.
		return
	}
	sess.Status = ConnDisconnected
	sess.graceTimer = nil

	t.Chain.Append("player_disconnected", map[string]any{"seat": sess.Seat}, &sess.ID, "", "")
	t.broadcast(protocol.New(protocol.TypePlayersUpdate, t.playersPayload()))

	if t.Status == StatusPlaying {
		t.Status = StatusPaused
		t.Chain.Append("game_paused", map[string]any{"reason": "disconnect", "seat": sess.Seat}, nil, "", "")
		t.broadcast(protocol.New(protocol.TypeGamePaused, map[string]any{"seat": sess.Seat}))
		m.log.WithFields(logrus.Fields{"table_id": t.ID, "seat": sess.Seat}).Info("table paused")
	}
	if t.attachedCount() == 0 {
		m.scheduleTeardownLocked(t)
	}
}

// scheduleTeardownLocked starts the abandonment clock: the table stays
// joinable by invite code for the retention window, then is deleted along
// with its invite mapping. Caller holds t.mu.
func (m *Manager) scheduleTeardownLocked(t *Table) {
	if t.teardownTimer != nil {
		return
	}
	t.teardownTimer = m.clock.AfterFunc(m.cfg.TableRetention, func() {
		m.teardown(t)
	})
}

// teardown permanently removes an abandoned table.
func (m *Manager) teardown(t *Table) {
	t.mu.Lock()
	if t.teardownTimer == nil || t.attachedCount() > 0 {
		t.mu.Unlock()
		return
	}
	t.Status = StatusFinished
	t.cancelAllTimers()
	var sessionIDs []uuid.UUID
	for _, s := range t.Sessions {
		if s != nil {
			sessionIDs = append(sessionIDs, s.ID)
		}
	}
	t.mu.Unlock()

	m.mu.Lock()
	delete(m.tables, t.ID)
	delete(m.invites, t.InviteCode)
	for _, id := range sessionIDs {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	m.log.WithField("table_id", t.ID).Info("table torn down")
}

func (m *Manager) charlestonPayload(t *Table) map[string]any {
	c := t.Charleston
	ready := make([]bool, charleston.NumSeats)
	for i := range c.Seats {
		ready[i] = c.Seats[i].Ready
	}
	return map[string]any{
		"phase":     c.Phase,
		"passCount": c.PassCount,
		"ready":     ready,
	}
}

// gameplayTable resolves and locks the caller's table, rejecting messages
// that cannot apply: no game yet, or the table is paused. The caller must
// unlock t.mu when done.
func (m *Manager) gameplayTable(sess *PlayerSession) (*Table, bool) {
	t := m.tableByID(sess.TableID)
	if t == nil {
		sess.send(protocol.NewError(protocol.CodeTableNotFound, "table no longer exists"))
		return nil, false
	}
	t.mu.Lock()
	if t.Game == nil {
		t.mu.Unlock()
		sess.send(protocol.NewError(protocol.CodeInvalidMessage, "game has not started"))
		return nil, false
	}
	if t.Status == StatusPaused {
		t.mu.Unlock()
		sess.send(protocol.NewError(protocol.CodeTablePaused, "table is paused"))
		return nil, false
	}
	if t.Status != StatusPlaying {
		t.mu.Unlock()
		sess.send(protocol.NewError(protocol.CodeInvalidMessage, "game is over"))
		return nil, false
	}
	return t, true
}

// CharlestonSelect records a seat's outgoing tiles. blindKeep is nil for a
// normal 3-tile pass.
func (m *Manager) CharlestonSelect(sess *PlayerSession, selected []tiles.Tile, blindKeep *int) {
	t, ok := m.gameplayTable(sess)
	if !ok {
		return
	}
	defer t.mu.Unlock()

	if t.Charleston == nil {
		sess.send(protocol.NewError(protocol.CodeInvalidMessage, "charleston is over"))
		return
	}
	if !tiles.Contains(t.Game.Hands[sess.Seat], selected) {
		sess.send(protocol.NewError(protocol.CodeInvalidSelection, "selected tiles not in hand"))
		return
	}
	keep := -1
	if blindKeep != nil {
		keep = *blindKeep
	}
	if err := t.Charleston.Select(sess.Seat, selected, keep); err != nil {
		sess.send(protocol.NewError(protocol.CodeInvalidSelection, err.Error()))
		return
	}
}

// CourtesySelect records a courtesy gift of 0-3 tiles to another seat.
func (m *Manager) CourtesySelect(sess *PlayerSession, target int, selected []tiles.Tile) {
	t, ok := m.gameplayTable(sess)
	if !ok {
		return
	}
	defer t.mu.Unlock()

	if t.Charleston == nil {
		sess.send(protocol.NewError(protocol.CodeInvalidMessage, "charleston is over"))
		return
	}
	if len(selected) > 0 && !tiles.Contains(t.Game.Hands[sess.Seat], selected) {
		sess.send(protocol.NewError(protocol.CodeInvalidSelection, "selected tiles not in hand"))
		return
	}
	if err := t.Charleston.SelectCourtesy(sess.Seat, target, selected); err != nil {
		sess.send(protocol.NewError(protocol.CodeInvalidSelection, err.Error()))
		return
	}
}

// CharlestonReady marks the seat ready and, once all four are, executes the
// pass or courtesy exchange and advances the phase.
func (m *Manager) CharlestonReady(sess *PlayerSession) {
	t, ok := m.gameplayTable(sess)
	if !ok {
		return
	}
	defer t.mu.Unlock()

	if t.Charleston == nil {
		sess.send(protocol.NewError(protocol.CodeInvalidMessage, "charleston is over"))
		return
	}
	if err := t.Charleston.Ready(sess.Seat); err != nil {
		sess.send(protocol.NewError(protocol.CodeInvalidSelection, err.Error()))
		return
	}
	t.broadcast(protocol.New(protocol.TypeCharlestonState, m.charlestonPayload(t)))
	if t.Charleston.AllReady() {
		m.advanceCharlestonLocked(t)
	}
}

// CharlestonVote casts the seat's vote on a second pass round; once all
// four are in, the outcome picks the next phase.
func (m *Manager) CharlestonVote(sess *PlayerSession, yes bool) {
	t, ok := m.gameplayTable(sess)
	if !ok {
		return
	}
	defer t.mu.Unlock()

	if t.Charleston == nil {
		sess.send(protocol.NewError(protocol.CodeInvalidMessage, "charleston is over"))
		return
	}
	if err := t.Charleston.CastVote(sess.Seat, yes); err != nil {
		sess.send(protocol.NewError(protocol.CodeInvalidSelection, err.Error()))
		return
	}
	t.Chain.Append("charleston_vote", map[string]any{"seat": sess.Seat, "yes": yes}, &sess.ID, "", "")
	if t.Charleston.VoteComplete() {
		passed := t.Charleston.VotePassed()
		t.Charleston.Advance()
		t.Chain.Append("charleston_vote_resolved", map[string]any{"passed": passed}, nil, "", "")
		t.broadcast(protocol.New(protocol.TypeCharlestonState, m.charlestonPayload(t)))
		if t.Charleston.Complete() {
			m.beginPlayLocked(t)
		}
	}
}

// advanceCharlestonLocked executes the barrier action for the current phase
// and moves on. Caller holds t.mu; all four seats are ready.
func (m *Manager) advanceCharlestonLocked(t *Table) {
	c := t.Charleston
	before := audit.HashState(t.Game.Hands)

	switch {
	case c.Phase == charleston.PhaseCourtesy:
		results, err := c.ExecuteCourtesy(&t.Game.Hands)
		if err != nil {
			m.log.WithError(err).Error("courtesy execution failed")
			return
		}
		m.sendPassResults(t, results)
		t.Chain.Append("charleston_courtesy", nil, nil, before, audit.HashState(t.Game.Hands))
	default:
		phase := c.Phase
		results, err := c.ExecutePass(&t.Game.Hands)
		if err != nil {
			m.log.WithError(err).Error("pass execution failed")
			return
		}
		m.sendPassResults(t, results)
		t.Chain.Append("charleston_pass", map[string]any{
			"phase":     phase,
			"passCount": c.PassCount,
		}, nil, before, audit.HashState(t.Game.Hands))
	}

	c.Advance()
	t.broadcast(protocol.New(protocol.TypeCharlestonState, m.charlestonPayload(t)))
	if c.Complete() {
		m.beginPlayLocked(t)
	}
}

// sendPassResults tells each seat privately what it received and forwarded.
func (m *Manager) sendPassResults(t *Table, results [charleston.NumSeats]charleston.PassResult) {
	for seat, r := range results {
		t.sendToSeat(seat, protocol.New(protocol.TypeCharlestonPassExecuted, map[string]any{
			"incoming":       r.Incoming,
			"outgoing":       r.Outgoing,
			"blindForwarded": r.BlindForwarded,
			"hand":           t.Game.Hands[seat],
		}))
	}
}

// beginPlayLocked discards the Charleston sub-state and opens play: the
// dealer holds 14 tiles and discards first. Caller holds t.mu.
func (m *Manager) beginPlayLocked(t *Table) {
	t.Charleston = nil
	t.Game.Turn = TurnState{Seat: t.Game.DealerSeat, AwaitingDiscard: true}
	t.Chain.Append("play_started", map[string]any{"seat": t.Game.DealerSeat}, nil, "", audit.HashState(t.Game.Turn))
	t.broadcast(protocol.New(protocol.TypeTurnStart, map[string]any{
		"seat":            t.Game.Turn.Seat,
		"awaitingDiscard": true,
	}))
}

// DrawTile gives the turn seat its draw. An empty wall ends the game in a
// draw, with the seed revealed like any other ending.
func (m *Manager) DrawTile(sess *PlayerSession) {
	t, ok := m.gameplayTable(sess)
	if !ok {
		return
	}
	defer t.mu.Unlock()

	if t.Charleston != nil {
		sess.send(protocol.NewError(protocol.CodeInvalidMessage, "charleston is still in progress"))
		return
	}
	turn := &t.Game.Turn
	if sess.Seat != turn.Seat {
		sess.send(protocol.NewError(protocol.CodeNotYourTurn, "not your turn"))
		return
	}
	if turn.AwaitingDiscard {
		sess.send(protocol.NewError(protocol.CodeInvalidMessage, "discard before drawing"))
		return
	}
	if turn.Claim != nil {
		sess.send(protocol.NewError(protocol.CodeInvalidMessage, "claim window still open"))
		return
	}

	if len(t.Game.DrawPile) == 0 {
		m.endGameLocked(t, nil, "", 0)
		return
	}
	drawn := t.Game.DrawPile[0]
	t.Game.DrawPile = t.Game.DrawPile[1:]
	t.Game.Hands[sess.Seat] = append(t.Game.Hands[sess.Seat], drawn)
	turn.AwaitingDiscard = true

	t.Chain.Append("tile_drawn", map[string]any{
		"seat":      sess.Seat,
		"remaining": len(t.Game.DrawPile),
	}, &sess.ID, "", "")
	sess.send(protocol.New(protocol.TypeTileDrawn, map[string]any{
		"tile":      drawn,
		"remaining": len(t.Game.DrawPile),
	}))
}

// DiscardTile plays a tile from the turn seat's hand and opens the claim
// window for the other seats.
func (m *Manager) DiscardTile(sess *PlayerSession, tile tiles.Tile) {
	t, ok := m.gameplayTable(sess)
	if !ok {
		return
	}
	defer t.mu.Unlock()

	if t.Charleston != nil {
		sess.send(protocol.NewError(protocol.CodeInvalidMessage, "charleston is still in progress"))
		return
	}
	turn := &t.Game.Turn
	if sess.Seat != turn.Seat {
		sess.send(protocol.NewError(protocol.CodeNotYourTurn, "not your turn"))
		return
	}
	if !turn.AwaitingDiscard {
		sess.send(protocol.NewError(protocol.CodeInvalidMessage, "draw before discarding"))
		return
	}
	rest, found := tiles.Remove(t.Game.Hands[sess.Seat], []tiles.Tile{tile})
	if !found {
		sess.send(protocol.NewError(protocol.CodeInvalidSelection, "tile not in hand"))
		return
	}
	before := audit.HashState(t.Game.Turn)
	t.Game.Hands[sess.Seat] = rest
	t.Game.Discards = append(t.Game.Discards, tile)
	turn.AwaitingDiscard = false

	claim := &ClaimWindow{
		Tile:      tile,
		FromSeat:  sess.Seat,
		ExpiresAt: m.clock.Now().Add(m.cfg.ClaimWindow),
	}
	turn.Claim = claim
	claim.timer = m.clock.AfterFunc(m.cfg.ClaimWindow, func() {
		m.claimExpired(t, claim)
	})

	t.Chain.Append("tile_discarded", map[string]any{
		"seat": sess.Seat,
		"tile": tile,
	}, &sess.ID, before, audit.HashState(t.Game.Turn))
	t.broadcast(protocol.New(protocol.TypeTileDiscarded, map[string]any{
		"seat": sess.Seat,
		"tile": tile,
	}))
	t.broadcast(protocol.New(protocol.TypeClaimWindow, map[string]any{
		"tile":      tile,
		"fromSeat":  sess.Seat,
		"expiresAt": claim.ExpiresAt.UnixMilli(),
	}))
}

// claimExpired closes an unclaimed window and passes the turn to the next
// seat, which must draw.
func (m *Manager) claimExpired(t *Table, claim *ClaimWindow) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Game == nil || t.Game.Turn.Claim != claim {
		// Claimed, or the game moved on; this timer is stale.
		return
	}
	t.Game.Turn.Claim = nil
	next := (claim.FromSeat + 1) % numSeats
	t.Game.Turn.Seat = next
	t.Game.Turn.AwaitingDiscard = false

	t.Chain.Append("claim_window_expired", map[string]any{"tile": claim.Tile}, nil, "", "")
	t.broadcast(protocol.New(protocol.TypeClaimWindowClosed, map[string]any{"claimed": false}))
	t.broadcast(protocol.New(protocol.TypeTurnStart, map[string]any{
		"seat":            next,
		"awaitingDiscard": false,
	}))
}

// ClaimTile takes the just-discarded tile out of turn. Pattern-level
// validation of what the claim builds is the rules evaluator's concern at
// win time; the window only enforces who and when.
func (m *Manager) ClaimTile(sess *PlayerSession, tile tiles.Tile) {
	t, ok := m.gameplayTable(sess)
	if !ok {
		return
	}
	defer t.mu.Unlock()

	claim := t.Game.Turn.Claim
	if claim == nil {
		sess.send(protocol.NewError(protocol.CodeInvalidMessage, "no claim window open"))
		return
	}
	if sess.Seat == claim.FromSeat {
		sess.send(protocol.NewError(protocol.CodeInvalidSelection, "cannot claim your own discard"))
		return
	}
	if tile != claim.Tile {
		sess.send(protocol.NewError(protocol.CodeInvalidSelection, "tile is not the live discard"))
		return
	}

	if claim.timer != nil {
		claim.timer.Stop()
		claim.timer = nil
	}
	t.Game.Turn.Claim = nil

	// The claimed tile moves off the discard pile into the claimant's hand.
	t.Game.Discards = t.Game.Discards[:len(t.Game.Discards)-1]
	t.Game.Hands[sess.Seat] = append(t.Game.Hands[sess.Seat], tile)
	t.Game.Turn.Seat = sess.Seat
	t.Game.Turn.AwaitingDiscard = true

	t.Chain.Append("tile_claimed", map[string]any{
		"seat": sess.Seat,
		"tile": tile,
		"from": claim.FromSeat,
	}, &sess.ID, "", audit.HashState(t.Game.Turn))
	t.broadcast(protocol.New(protocol.TypeClaimWindowClosed, map[string]any{
		"claimed":   true,
		"claimedBy": sess.Seat,
	}))
	t.broadcast(protocol.New(protocol.TypeTurnStart, map[string]any{
		"seat":            sess.Seat,
		"awaitingDiscard": true,
	}))
}

// DeclareWin checks the declared pattern with the rules evaluator and, on
// success, ends the game and reveals the seed material.
func (m *Manager) DeclareWin(sess *PlayerSession, pattern string) {
	t, ok := m.gameplayTable(sess)
	if !ok {
		return
	}
	defer t.mu.Unlock()

	if t.Charleston != nil {
		sess.send(protocol.NewError(protocol.CodeInvalidMessage, "charleston is still in progress"))
		return
	}
	g := t.Game
	if !m.eval.MatchesPattern(g.Hands[sess.Seat], g.Exposures[sess.Seat], pattern) {
		sess.send(protocol.NewError(protocol.CodeInvalidSelection, "hand does not match declared pattern"))
		return
	}
	score := m.eval.Score(pattern, g.jokerCount(sess.Seat))
	seat := sess.Seat
	m.endGameLocked(t, &seat, pattern, score)
}

// endGameLocked finishes the game and performs the seed reveal: the server
// secret becomes public exactly once, letting anyone recompute the
// commitment and replay the shuffle. Caller holds t.mu.
func (m *Manager) endGameLocked(t *Table, winnerSeat *int, pattern string, score int) {
	t.Status = StatusFinished
	t.Seed.Revealed = true
	if claim := t.Game.Turn.Claim; claim != nil && claim.timer != nil {
		claim.timer.Stop()
		claim.timer = nil
		t.Game.Turn.Claim = nil
	}

	t.Chain.Append("seed_revealed", map[string]any{
		"commitment": t.Seed.Commitment,
		"nonce":      t.Game.ShuffleNonce,
	}, nil, "", "")
	if winnerSeat != nil {
		t.Chain.Append("game_won", map[string]any{
			"seat":    *winnerSeat,
			"pattern": pattern,
			"score":   score,
		}, nil, "", "")
	} else {
		t.Chain.Append("game_drawn", nil, nil, "", "")
	}

	payload := map[string]any{
		"serverSeed":   t.Seed.ServerSecret,
		"clientSeed":   t.Seed.ClientSeed,
		"commitment":   t.Seed.Commitment,
		"shuffleNonce": t.Game.ShuffleNonce,
	}
	if winnerSeat != nil {
		payload["winnerSeat"] = *winnerSeat
		payload["pattern"] = pattern
		payload["score"] = score
	}
	t.broadcast(protocol.New(protocol.TypeGameEnded, payload))

	m.scheduleTeardownLocked(t)
	m.log.WithField("table_id", t.ID).Info("game ended")
}

// TableCount reports how many tables are live, for operational logging.
func (m *Manager) TableCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables)
}

// SessionByID resolves a registered session, used by reconnecting
// transports.
func (m *Manager) SessionByID(id uuid.UUID) *PlayerSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}
