// Package discord implements the event collector that drives pagination
// sessions from Discord reaction and button input.
package discord

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/StormDevelopmentSoftware/paginator/internal/observability"
	"github.com/StormDevelopmentSoftware/paginator/internal/paginator"
	"github.com/StormDevelopmentSoftware/paginator/internal/ratelimit"
)

// discordSession interface allows for mocking the Discord session in tests.
type discordSession interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	MessageReactionRemove(channelID, messageID, emojiID, userID string, options ...discordgo.RequestOption) error
	MessageReactionsRemoveAll(channelID, messageID string, options ...discordgo.RequestOption) error
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	AddHandler(handler interface{}) func()
}

// Config holds configuration for the collector.
type Config struct {
	// RateLimit configures the token bucket applied to every remote
	// Discord call the collector issues.
	RateLimit ratelimit.Config

	// DefaultTimeout is the session timeout used when a spawn request
	// does not set one.
	DefaultTimeout time.Duration

	// DefaultBehavior is the boundary behavior used when a spawn
	// request does not set one.
	DefaultBehavior paginator.BoundaryBehavior

	// DefaultDeletionPolicy is the cleanup policy used when a spawn
	// request does not set one.
	DefaultDeletionPolicy paginator.DeletionPolicy

	// DisposeTimeout bounds the remote cleanup call issued after a
	// session completes.
	DisposeTimeout time.Duration

	// Logger is an optional slog.Logger instance.
	Logger *slog.Logger

	// Metrics is an optional metrics sink.
	Metrics *observability.Metrics
}

// Validate checks if the configuration is valid and applies defaults.
func (c *Config) Validate() error {
	if c.DefaultTimeout == 0 {
		c.DefaultTimeout = 5 * time.Minute
	}
	if c.DefaultTimeout < 0 {
		return paginator.ErrConfig("default timeout must be positive", nil)
	}
	if c.DefaultBehavior == "" {
		c.DefaultBehavior = paginator.Clamp
	}
	if !c.DefaultBehavior.Valid() {
		return paginator.ErrConfig("unknown default boundary behavior: "+string(c.DefaultBehavior), nil)
	}
	if c.DefaultDeletionPolicy == "" {
		c.DefaultDeletionPolicy = paginator.DeleteControlMarks
	}
	if !c.DefaultDeletionPolicy.Valid() {
		return paginator.ErrConfig("unknown default deletion policy: "+string(c.DefaultDeletionPolicy), nil)
	}
	if c.DisposeTimeout == 0 {
		c.DisposeTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// Collector bridges Discord input events to pagination sessions. It
// spawns sessions, routes reaction and button events to the owning
// session, renders the resulting page, and executes each session's
// cleanup policy when it ends.
type Collector struct {
	config   Config
	session  discordSession
	registry *paginator.Registry
	limiter  *ratelimit.Bucket
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu          sync.Mutex
	started     bool
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	unsubscribe []func()
}

// NewCollector creates a collector on top of an established Discord
// session.
func NewCollector(session *discordgo.Session, config Config) (*Collector, error) {
	return newCollector(session, config)
}

// newCollector is the interface-typed constructor used by tests.
func newCollector(session discordSession, config Config) (*Collector, error) {
	if session == nil {
		return nil, paginator.ErrConfig("discord session is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Collector{
		config:   config,
		session:  session,
		registry: paginator.NewRegistry(),
		limiter:  ratelimit.NewBucket(config.RateLimit),
		logger:   config.Logger.With("component", "collector"),
		metrics:  config.Metrics,
	}, nil
}

// Start subscribes the collector to reaction and interaction events.
func (c *Collector) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return paginator.ErrInternal("collector already started", nil)
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.unsubscribe = []func(){
		c.session.AddHandler(c.handleReactionAdd),
		c.session.AddHandler(c.handleInteractionCreate),
	}
	c.started = true

	c.logger.Info("collector started")
	return nil
}

// Stop unsubscribes from events, abandons all in-flight session waits
// (their cleanup still runs), and waits for session goroutines to
// finish, bounded by ctx.
func (c *Collector) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	for _, remove := range c.unsubscribe {
		remove()
	}
	c.unsubscribe = nil
	c.cancel()
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("collector stopped gracefully")
		return nil
	case <-ctx.Done():
		c.logger.Warn("stop timeout, session goroutines still draining")
		return paginator.ErrTimeout("collector stop timed out", ctx.Err())
	}
}

// SpawnRequest describes a pagination session to start. Zero-valued
// fields fall back to the collector defaults.
type SpawnRequest struct {
	Pages          []paginator.Page
	Owner          string
	Behavior       paginator.BoundaryBehavior
	DeletionPolicy paginator.DeletionPolicy
	Timeout        time.Duration
	Bindings       paginator.BindingSet
}

// Spawn sends the first page to the given channel, attaches the control
// surface (reactions or buttons), and activates a session bound to the
// sent message. The session runs until its timeout elapses or a stop
// control arrives; the collector then executes its cleanup policy and
// forgets it.
func (c *Collector) Spawn(ctx context.Context, channelID string, req SpawnRequest) (*paginator.Session, error) {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return nil, paginator.ErrInternal("collector not started", nil)
	}

	if len(req.Pages) == 0 {
		return nil, paginator.ErrInvalidInput("at least one page is required", nil)
	}
	if channelID == "" {
		return nil, paginator.ErrInvalidInput("channel ID is required", nil)
	}
	if req.Bindings == nil {
		req.Bindings = paginator.NewEmojiBindings()
	}
	if req.Behavior == "" {
		req.Behavior = c.config.DefaultBehavior
	}
	if req.DeletionPolicy == "" {
		req.DeletionPolicy = c.config.DefaultDeletionPolicy
	}
	if req.Timeout == 0 {
		req.Timeout = c.config.DefaultTimeout
	}

	first := req.Pages[0]
	send := &discordgo.MessageSend{Content: first.Content}
	if first.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{first.Embed}
	}
	if req.Bindings.Kind() == paginator.BindingButtons {
		send.Components = buttonRows(req.Bindings)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, paginator.ErrTimeout("rate limit wait cancelled", err)
	}
	msg, err := c.session.ChannelMessageSendComplex(channelID, send)
	if err != nil {
		c.logger.Error("failed to send initial page", "channel_id", channelID, "error", err)
		return nil, paginator.ErrTransport("failed to send initial page", err)
	}

	if req.Bindings.Kind() == paginator.BindingReactions {
		// Attach controls in order. A failed reaction degrades the
		// control surface but does not abort the session.
		for _, token := range req.Bindings.Tokens() {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, paginator.ErrTimeout("rate limit wait cancelled", err)
			}
			if err := c.session.MessageReactionAdd(channelID, msg.ID, token); err != nil {
				c.logger.Warn("failed to attach control reaction",
					"channel_id", channelID,
					"message_id", msg.ID,
					"emoji", token,
					"error", err)
			}
		}
	}

	sess, err := paginator.CreateSession(paginator.Options{
		Pages:          req.Pages,
		Owner:          req.Owner,
		Behavior:       req.Behavior,
		DeletionPolicy: req.DeletionPolicy,
		Timeout:        req.Timeout,
		Bindings:       req.Bindings,
		Target:         paginator.RenderTarget{ChannelID: channelID, MessageID: msg.ID},
		Logger:         c.config.Logger,
	})
	if err != nil {
		return nil, err
	}

	c.registry.Register(sess)
	if c.metrics != nil {
		c.metrics.ActiveSessions.WithLabelValues(string(req.Bindings.Kind())).Inc()
	}

	c.wg.Add(1)
	go c.supervise(sess)

	c.logger.Info("session spawned",
		"session_id", sess.ID().String(),
		"channel_id", channelID,
		"message_id", msg.ID,
		"owner", req.Owner,
		"pages", sess.CurrentPageCount(),
		"bindings", req.Bindings.Kind())

	return sess, nil
}

// ActiveSessions returns the number of sessions the collector tracks.
func (c *Collector) ActiveSessions() int {
	return c.registry.Len()
}

// supervise waits for a session to end and then disposes it. Disposal
// runs on every exit path, including collector shutdown abandoning the
// wait while the session is still active.
func (c *Collector) supervise(sess *paginator.Session) {
	defer c.wg.Done()
	defer c.registry.Remove(sess.Target().MessageID)

	waitErr := sess.WaitUntilComplete(c.ctx)

	ctx, cancel := context.WithTimeout(context.Background(), c.config.DisposeTimeout)
	defer cancel()

	policy := sess.DeletionPolicy()
	if err := sess.Dispose(ctx, c); err != nil {
		c.recordCleanup(policy, "error")
	} else {
		c.recordCleanup(policy, "success")
	}

	// Button controls live on the message itself; dropping the marks
	// means editing them off.
	if policy == paginator.DeleteControlMarks && sess.Bindings().Kind() == paginator.BindingButtons {
		c.clearComponents(ctx, sess.Target())
	}

	if c.metrics != nil {
		c.metrics.ActiveSessions.WithLabelValues(string(sess.Bindings().Kind())).Dec()
		c.metrics.SessionsTotal.WithLabelValues(string(sess.Reason())).Inc()
		c.metrics.SessionDuration.Observe(time.Since(sess.StartedAt()).Seconds())
	}

	c.logger.Info("session ended",
		"session_id", sess.ID().String(),
		"message_id", sess.Target().MessageID,
		"reason", sess.Reason(),
		"abandoned", waitErr != nil)
}

// Event handlers

func (c *Collector) handleReactionAdd(s *discordgo.Session, e *discordgo.MessageReactionAdd) {
	sess, ok := c.registry.Lookup(e.MessageID)
	if !ok {
		return
	}
	// Only the session owner drives navigation. This also filters the
	// bot's own control reactions.
	if e.UserID != sess.Owner() {
		return
	}

	token := e.Emoji.APIName()
	page, active, err := sess.RegisterControl(token)
	if err != nil {
		c.recordControl(err)
		c.logger.Debug("control rejected",
			"session_id", sess.ID().String(),
			"token", token,
			"error", err)
		return
	}
	c.recordControlOK(sess, token)

	if active {
		c.render(c.ctx, sess.Target(), page, sess.Bindings())
	}

	// Remove the owner's reaction so each control stays single-click.
	// Best-effort: missing permissions degrade to double-click controls.
	if err := c.limiter.Wait(c.ctx); err == nil {
		if err := c.session.MessageReactionRemove(e.ChannelID, e.MessageID, token, e.UserID); err != nil {
			c.logger.Debug("failed to remove control reaction", "message_id", e.MessageID, "error", err)
		}
	}
}

func (c *Collector) handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent || i.Message == nil {
		return
	}
	sess, ok := c.registry.Lookup(i.Message.ID)
	if !ok {
		return
	}

	userID := ""
	if i.Member != nil && i.Member.User != nil {
		userID = i.Member.User.ID
	} else if i.User != nil {
		userID = i.User.ID
	}
	if userID != sess.Owner() {
		c.acknowledge(i.Interaction)
		return
	}

	token := i.MessageComponentData().CustomID
	page, active, err := sess.RegisterControl(token)
	if err != nil {
		c.recordControl(err)
		c.logger.Debug("control rejected",
			"session_id", sess.ID().String(),
			"token", token,
			"error", err)
		c.acknowledge(i.Interaction)
		return
	}
	c.recordControlOK(sess, token)

	if !active {
		c.acknowledge(i.Interaction)
		return
	}

	// Button renders go through the interaction response instead of a
	// separate message edit.
	embeds := []*discordgo.MessageEmbed{}
	if page.Embed != nil {
		embeds = append(embeds, page.Embed)
	}
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    page.Content,
			Embeds:     embeds,
			Components: buttonRows(sess.Bindings()),
		},
	}
	if err := c.session.InteractionRespond(i.Interaction, resp); err != nil {
		c.recordRender("error")
		c.logger.Error("failed to render page via interaction",
			"session_id", sess.ID().String(),
			"message_id", i.Message.ID,
			"error", err)
		return
	}
	c.recordRender("success")
}

// acknowledge answers an interaction without changing the message, so
// Discord does not flag it as failed for the clicking user.
func (c *Collector) acknowledge(i *discordgo.Interaction) {
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate}
	if err := c.session.InteractionRespond(i, resp); err != nil {
		c.logger.Debug("failed to acknowledge interaction", "error", err)
	}
}

// render edits the rendered message to show the given page.
func (c *Collector) render(ctx context.Context, target paginator.RenderTarget, page paginator.Page, bindings paginator.BindingSet) {
	if err := c.limiter.Wait(ctx); err != nil {
		c.recordRender("error")
		return
	}

	embeds := []*discordgo.MessageEmbed{}
	if page.Embed != nil {
		embeds = append(embeds, page.Embed)
	}
	edit := discordgo.NewMessageEdit(target.ChannelID, target.MessageID).
		SetContent(page.Content).
		SetEmbeds(embeds)

	if _, err := c.session.ChannelMessageEditComplex(edit); err != nil {
		c.recordRender("error")
		c.logger.Error("failed to render page",
			"channel_id", target.ChannelID,
			"message_id", target.MessageID,
			"error", err)
		return
	}
	c.recordRender("success")
}

// clearComponents strips the button rows off a message. Best-effort.
func (c *Collector) clearComponents(ctx context.Context, target paginator.RenderTarget) {
	if err := c.limiter.Wait(ctx); err != nil {
		return
	}
	components := []discordgo.MessageComponent{}
	edit := discordgo.NewMessageEdit(target.ChannelID, target.MessageID)
	edit.Components = &components
	if _, err := c.session.ChannelMessageEditComplex(edit); err != nil {
		c.logger.Debug("failed to clear control buttons", "message_id", target.MessageID, "error", err)
	}
}

// Remote cleanup primitives (paginator.Cleaner)

// RemoveAllControlMarks removes every reaction from the rendered message.
func (c *Collector) RemoveAllControlMarks(ctx context.Context, target paginator.RenderTarget) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return paginator.ErrTimeout("rate limit wait cancelled", err)
	}
	if err := c.session.MessageReactionsRemoveAll(target.ChannelID, target.MessageID); err != nil {
		return paginator.ErrTransport("failed to remove control marks", err)
	}
	return nil
}

// DeleteArtifact deletes the rendered message.
func (c *Collector) DeleteArtifact(ctx context.Context, target paginator.RenderTarget) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return paginator.ErrTimeout("rate limit wait cancelled", err)
	}
	if err := c.session.ChannelMessageDelete(target.ChannelID, target.MessageID); err != nil {
		return paginator.ErrTransport("failed to delete rendered message", err)
	}
	return nil
}

// Metrics helpers

func (c *Collector) recordControlOK(sess *paginator.Session, token string) {
	if c.metrics == nil {
		return
	}
	action, err := sess.Bindings().Resolve(token)
	if err != nil {
		return
	}
	c.metrics.ControlsTotal.WithLabelValues(string(action), "ok").Inc()
}

func (c *Collector) recordControl(err error) {
	if c.metrics == nil {
		return
	}
	status := "unsupported"
	if paginator.IsSessionInactive(err) {
		status = "inactive"
	}
	// Unrecognized tokens are unbounded; keep the action label fixed.
	c.metrics.ControlsTotal.WithLabelValues("unknown", status).Inc()
}

func (c *Collector) recordCleanup(policy paginator.DeletionPolicy, status string) {
	if c.metrics == nil {
		return
	}
	c.metrics.CleanupsTotal.WithLabelValues(string(policy), status).Inc()
}

func (c *Collector) recordRender(status string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RendersTotal.WithLabelValues(status).Inc()
}

// buttonRows builds the component rows for a button binding set. Tokens
// arrive in control order: first, previous, stop, next, last.
func buttonRows(bindings paginator.BindingSet) []discordgo.MessageComponent {
	tokens := bindings.Tokens()
	labels := []string{"«", "‹", "■", "›", "»"}

	buttons := make([]discordgo.MessageComponent, 0, len(tokens))
	for i, token := range tokens {
		style := discordgo.SecondaryButton
		if i == 2 {
			style = discordgo.DangerButton
		}
		buttons = append(buttons, discordgo.Button{
			Label:    labels[i],
			Style:    style,
			CustomID: token,
		})
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: buttons},
	}
}
