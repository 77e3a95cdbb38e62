package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/icare-life/carebot/internal/domain"
	"github.com/icare-life/carebot/internal/i18n"
	"github.com/icare-life/carebot/internal/policy"
)

// KnowledgeBase answers free-text questions from the curated course corpus.
// Implementations must tolerate empty answer sets.
type KnowledgeBase interface {
	Lookup(ctx context.Context, question, languageLabel, knowledgeBase string) ([]domain.AnswerCandidate, error)
}

// Advisor is the general-purpose AI oracle used for off-topic questions and
// as fallback when the knowledge base has nothing.
type Advisor interface {
	Advise(ctx context.Context, question string) (string, error)
}

// TextTranslator translates dynamic answer text into the visitor's language.
type TextTranslator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// IdentityVerifier verifies captured identities against the account service.
type IdentityVerifier interface {
	Verify(ctx context.Context, email, name string) (domain.IdentityResult, error)
	VerifyOTP(ctx context.Context, email, otp string) (bool, error)
}

// Speaker voices bot messages. A nil Speaker degrades silently to text-only.
type Speaker interface {
	Speak(ctx context.Context, text string)
}

// ExchangeRecorder receives completed exchanges and the end-of-session signal.
type ExchangeRecorder interface {
	RecordExchange(ctx context.Context, entry domain.QueryLogEntry, transcriptLen int, profile domain.UserProfile)
	RecordEnd(ctx context.Context, endedAt time.Time, profile domain.UserProfile)
}

var flowTransitionRecorder = func(from, to string) {}

// RegisterFlowTransitionRecorder lets the metrics package observe flow
// transitions without the core importing it.
func RegisterFlowTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		flowTransitionRecorder = func(string, string) {}
		return
	}

	flowTransitionRecorder = recorder
}

var verdictRecorder = func(kind string) {}

// RegisterVerdictRecorder lets the metrics package count policy verdicts.
func RegisterVerdictRecorder(recorder func(kind string)) {
	if recorder == nil {
		verdictRecorder = func(string) {}
		return
	}

	verdictRecorder = recorder
}

// Config carries the controller tunables.
type Config struct {
	Policy             policy.Config
	KnowledgeBaseName  string
	DefaultLanguage    string
	SupportedLanguages []string
	LookupTimeout      time.Duration
}

// Deps bundles the external collaborators of a controller. Knowledge,
// Advisor, Translator, Identity and Speech may be nil; each absence degrades
// to a reduced but functional conversation.
type Deps struct {
	Catalog    *i18n.Manager
	Knowledge  KnowledgeBase
	Advisor    Advisor
	Translator TextTranslator
	Identity   IdentityVerifier
	Recorder   ExchangeRecorder
	Speech     Speaker
	Log        *slog.Logger
}

// inflight tracks the single cancellable lookup a session may have running.
type inflight struct {
	seq            uint64
	cancel         context.CancelFunc
	done           chan struct{}
	placeholderIdx int
}

// Controller owns the conversation state of one session. All event handlers
// serialize on the internal mutex, so no two transitions interleave on the
// same state.
type Controller struct {
	mu    sync.Mutex
	state *State
	cfg   Config
	deps  Deps
	log   *slog.Logger
	now   func() time.Time

	lookupSeq uint64
	current   *inflight
}

// NewSessionID builds the persistent per-session identifier.
func NewSessionID(now time.Time) string {
	random := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), random)
}

// New constructs a controller for a fresh session and renders the welcome
// turn: the greeting with language options, awaiting the visitor's name.
func New(sessionID string, deps Deps, cfg Config) *Controller {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 30 * time.Second
	}

	c := &Controller{
		cfg:  cfg,
		deps: deps,
		log:  log.With("session_id", sessionID),
		now:  time.Now,
	}
	c.state = NewState(sessionID, c.now())

	m := welcomeMenu(c.translator(), cfg.SupportedLanguages)
	c.appendBot(m.text, m.options, 0)
	return c
}

// Resume rebuilds a controller around a previously persisted snapshot, so a
// widget reload continues the conversation where it stopped.
func Resume(snapshot State, deps Deps, cfg Config) *Controller {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 30 * time.Second
	}

	return &Controller{
		cfg:   cfg,
		deps:  deps,
		log:   log.With("session_id", snapshot.SessionID),
		now:   time.Now,
		state: &snapshot,
	}
}

// SessionID returns the identifier generated at construction.
func (c *Controller) SessionID() string {
	return c.state.SessionID
}

// Snapshot returns a copy of the conversation state for persistence.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := *c.state
	snap.PreviousFlows = append([]Flow(nil), c.state.PreviousFlows...)
	snap.Messages = append([]domain.Message(nil), c.state.Messages...)
	snap.Profile.OwnedCourseCategories = append([]string(nil), c.state.Profile.OwnedCourseCategories...)
	return snap
}

// Messages returns the transcript entries after the given index.
func (c *Controller) Messages(after int) []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	if after < 0 {
		after = 0
	}
	if after >= len(c.state.Messages) {
		return nil
	}

	return append([]domain.Message(nil), c.state.Messages[after:]...)
}

// HandleMenuSelection processes an option click. Unknown option values are
// ignored without state change, and while an identity field is pending only
// language selection may pass.
func (c *Controller) HandleMenuSelection(ctx context.Context, option domain.Option) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.appendUser(option.Label)

	transition := ParseTransition(option.Value)
	if transition.Kind == TransitionUnknown {
		c.log.Debug("ignoring unrecognized option value", "value", option.Value)
		return
	}

	if c.state.AwaitingInput != AwaitingNone && transition.Kind != TransitionSelectLanguage {
		c.log.Debug("menu selection suspended while awaiting input",
			"awaiting", string(c.state.AwaitingInput), "value", option.Value)
		c.reprompt()
		return
	}

	switch transition.Kind {
	case TransitionSelectUserType:
		c.selectUserType(transition.UserType)
	case TransitionOpenMenu:
		c.openMenu(transition.Menu)
	case TransitionCourseTrack:
		c.state.PushFlow()
		c.render(courseTrackMenu(c.translator(), transition.Track))
	case TransitionBack:
		c.navigateBack()
	case TransitionMainMenu:
		c.navigateMainMenu()
	case TransitionSelectLanguage:
		c.selectLanguage(transition.Language)
	}

	c.state.UpdatedAt = c.now()
}

// HandleTextInput processes typed (or voice-transcribed) input according to
// the pending identity capture, or as a free-text query in the health flow.
func (c *Controller) HandleTextInput(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.appendUser(text)

	switch c.state.AwaitingInput {
	case AwaitingName:
		c.captureName(text)
	case AwaitingEmail:
		c.captureEmail(ctx, text)
	case AwaitingEmailOTP:
		c.captureOTP(ctx, text)
	default:
		if c.state.CurrentFlow == FlowHealth {
			c.startHealthQuery(text)
		} else {
			c.handleGeneralInput(text)
		}
	}

	c.state.UpdatedAt = c.now()
}

// End cancels any in-flight lookup and flushes the session summary.
func (c *Controller) End(ctx context.Context) {
	c.mu.Lock()
	if c.current != nil && c.current.cancel != nil {
		c.current.cancel()
	}
	profile := c.state.Profile
	c.mu.Unlock()

	if c.deps.Recorder != nil {
		c.deps.Recorder.RecordEnd(ctx, c.now(), profile)
	}
}

// Wait blocks until the current in-flight lookup, if any, has resolved.
func (c *Controller) Wait() {
	c.mu.Lock()
	var done chan struct{}
	if c.current != nil {
		done = c.current.done
	}
	c.mu.Unlock()

	if done != nil {
		<-done
	}
}

// --- identity capture -----------------------------------------------------

func (c *Controller) captureName(text string) {
	tr := c.translator()

	if !ValidName(text) {
		c.appendBot(tr.T("bot.invalid_name"), nil, 0)
		return
	}

	c.state.Profile.Name = strings.TrimSpace(text)
	c.state.AwaitingInput = AwaitingEmail
	c.appendBot(tr.Tf("bot.ask_email", c.state.Profile.Name), nil, 0)
}

func (c *Controller) captureEmail(ctx context.Context, text string) {
	tr := c.translator()

	if !ValidEmail(text) {
		c.appendBot(tr.T("bot.invalid_email"), nil, 0)
		return
	}

	email := CanonicalEmail(text)
	c.state.Profile.Email = email
	c.state.AwaitingInput = AwaitingEmailOTP

	if c.deps.Identity != nil {
		result, err := c.deps.Identity.Verify(ctx, email, c.state.Profile.Name)
		switch {
		case err != nil:
			c.log.Warn("identity verification failed", "error", err)
			c.state.Profile.UserType = domain.UserTypeGuest
		case len(result.Courses) > 0:
			c.state.Profile.UserType = domain.UserTypeStudent
			c.state.Profile.OwnedCourseCategories = append([]string(nil), result.Courses...)
		case result.IsMembership:
			c.state.Profile.UserType = domain.UserTypeMember
		default:
			c.state.Profile.UserType = domain.UserTypeGuest
		}
	} else {
		c.state.Profile.UserType = domain.UserTypeGuest
	}

	c.appendBot(tr.Tf("bot.ask_otp", email), nil, 0)
}

func (c *Controller) captureOTP(ctx context.Context, text string) {
	tr := c.translator()

	if !ValidOTP(text) {
		c.appendBot(tr.T("bot.invalid_otp"), nil, 0)
		return
	}

	if c.deps.Identity != nil {
		ok, err := c.deps.Identity.VerifyOTP(ctx, c.state.Profile.Email, strings.TrimSpace(text))
		if err != nil {
			c.log.Warn("otp verification error", "error", err)
			c.appendBot(tr.T("bot.otp_failed"), nil, 0)
			return
		}
		if !ok {
			c.appendBot(tr.T("bot.otp_failed"), nil, 0)
			return
		}
	}

	c.state.AwaitingInput = AwaitingNone
	c.transitionFlow(FlowUserType)
	m := userTypeMenu(tr)
	c.appendBot(tr.T("bot.otp_verified")+"\n\n"+m.text, m.options, 0)
}

// reprompt repeats the pending identity question after a suspended menu click.
func (c *Controller) reprompt() {
	tr := c.translator()

	switch c.state.AwaitingInput {
	case AwaitingName:
		c.appendBot(tr.T("bot.invalid_name"), nil, 0)
	case AwaitingEmail:
		c.appendBot(tr.T("bot.invalid_email"), nil, 0)
	case AwaitingEmailOTP:
		c.appendBot(tr.T("bot.invalid_otp"), nil, 0)
	}
}

// --- menu navigation ------------------------------------------------------

func (c *Controller) selectUserType(selected domain.UserType) {
	// Verified entitlements always win over a self-declared menu choice.
	current := c.state.Profile.UserType
	if current != domain.UserTypeMember && current != domain.UserTypeStudent {
		c.state.Profile.UserType = selected
	}

	c.state.PushFlow()
	c.transitionFlow(flowForUserType(selected))
	c.render(menuForFlow(c.translator(), c.state.CurrentFlow, c.cfg.SupportedLanguages))
}

func (c *Controller) openMenu(key MenuKey) {
	tr := c.translator()

	switch key {
	case MenuHealth:
		c.state.PushFlow()
		c.transitionFlow(FlowHealth)
		c.render(healthMenu(tr, c.cfg.SupportedLanguages))
	case MenuKnowMore:
		c.state.PushFlow()
		c.render(aboutMenu(tr))
	case MenuCurriculum:
		c.state.PushFlow()
		c.render(curriculumMenu(tr))
	case MenuCaregiving:
		c.state.PushFlow()
		c.render(caregivingMenu(tr))
	case MenuPricing:
		c.state.PushFlow()
		c.render(pricingMenu(tr))
	case MenuTestimonials:
		c.state.PushFlow()
		c.render(testimonialsMenu(tr))
	case MenuBenefits:
		c.state.PushFlow()
		c.render(benefitsMenu(tr))
	case MenuTrial:
		c.appendBot(tr.T("content.trial"), backOptions(tr), 0)
	case MenuPartnerDetails:
		c.appendBot(tr.T("content.partner_details"), backOptions(tr), 0)
	}
}

func (c *Controller) navigateBack() {
	flow, ok := c.state.PopFlow()
	if !ok {
		c.navigateMainMenu()
		return
	}

	c.transitionFlow(flow)
	c.render(menuForFlow(c.translator(), flow, c.cfg.SupportedLanguages))
}

func (c *Controller) navigateMainMenu() {
	c.state.ClearFlows()
	c.transitionFlow(FlowUserType)
	c.render(userTypeMenu(c.translator()))
}

func (c *Controller) selectLanguage(lang string) {
	c.state.Profile.LanguageCode = lang
	c.state.AwaitingInput = AwaitingNone
	c.state.PushFlow()
	c.transitionFlow(FlowHealth)

	tr := c.translator()
	c.appendBot(tr.Tf("bot.language_ack", tr.T("langname."+lang)), backOptions(tr), 0)
}

func (c *Controller) handleGeneralInput(text string) {
	tr := c.translator()
	options := []domain.Option{
		opt(tr, "label.curriculum", string(MenuCurriculum)),
		opt(tr, "label.see_pricing", string(MenuPricing)),
		opt(tr, "label.health", string(MenuHealth)),
	}
	c.appendBot(tr.Tf("bot.general_redirect", text), append(options, backOptions(tr)...), 0)
}

// --- free-text health queries ---------------------------------------------

// startHealthQuery appends the thinking placeholder and dispatches the lookup
// on its own goroutine. A newer query cancels the previous in-flight lookup,
// whose late result is then discarded instead of being appended out of order.
func (c *Controller) startHealthQuery(question string) {
	tr := c.translator()
	c.state.QueryCount++

	if c.cfg.Policy.OverFreeLimit(c.state.QueryCount, c.state.Profile.UserType) {
		verdictRecorder(string(policy.RequireIdentity))
		if c.state.Profile.Name == "" {
			c.state.AwaitingInput = AwaitingName
		} else if !c.state.Profile.Identified() {
			c.state.AwaitingInput = AwaitingEmail
		}
		c.appendBot(tr.T("bot.identity_required"), nil, 0)
		return
	}

	c.cancelInflightLocked()

	c.appendBot(tr.T("bot.thinking"), nil, 0)
	placeholderIdx := len(c.state.Messages) - 1

	c.lookupSeq++
	lctx, cancel := context.WithTimeout(context.Background(), c.cfg.LookupTimeout)
	c.current = &inflight{
		seq:            c.lookupSeq,
		cancel:         cancel,
		done:           make(chan struct{}),
		placeholderIdx: placeholderIdx,
	}

	go c.resolveQuery(lctx, c.current, question, c.now())
}

// cancelInflightLocked aborts the previous lookup and removes its placeholder.
func (c *Controller) cancelInflightLocked() {
	if c.current == nil {
		return
	}

	c.current.cancel()
	if idx := c.current.placeholderIdx; idx >= 0 && idx < len(c.state.Messages) {
		c.state.Messages = append(c.state.Messages[:idx], c.state.Messages[idx+1:]...)
	}
	c.current = nil
}

func (c *Controller) resolveQuery(ctx context.Context, flight *inflight, question string, started time.Time) {
	defer close(flight.done)
	defer flight.cancel()

	profile := c.profileCopy()
	queryCount := c.queryCount()

	var (
		finalText string
		sources   []string
		topic     = "general"
		status    = domain.StatusAnswered
		verdict   policy.Verdict
		lookupErr error
	)

	var answers []domain.AnswerCandidate
	if c.deps.Knowledge != nil {
		answers, lookupErr = c.deps.Knowledge.Lookup(ctx, question, c.languageLabel(profile.LanguageCode), c.cfg.KnowledgeBaseName)
		if lookupErr != nil {
			c.log.Warn("knowledge base lookup failed", "error", lookupErr)
		}
	}

	switch {
	case lookupErr == nil && len(answers) > 0:
		verdict = c.cfg.Policy.DecideAll(answers, &profile, queryCount)
	default:
		verdict = policy.Verdict{Kind: policy.Redirect, Category: domain.CategoryOffTopic}
	}
	verdictRecorder(string(verdict.Kind))

	// The goroutine must not touch c.state: render from the profile copy.
	tr := c.translatorFor(profile.LanguageCode)
	failed := false

	switch verdict.Kind {
	case policy.Allow:
		finalText = verdict.Text
		sources = verdict.Sources
		topic = verdict.Category
	case policy.RequireIdentity:
		finalText = tr.T("bot.identity_required")
		topic = verdict.Category
		status = domain.StatusUnanswered
	case policy.RequirePurchase:
		finalText = tr.Tf("bot.purchase_required", verdict.Category)
		topic = verdict.Category
		status = domain.StatusUnanswered
	case policy.Redirect:
		if c.deps.Advisor == nil {
			failed = true
			break
		}
		advice, err := c.deps.Advisor.Advise(ctx, question)
		if err != nil {
			c.log.Warn("general advice lookup failed", "error", err)
			failed = true
			break
		}
		finalText = advice
		sources = []string{tr.T("bot.general_source_label")}
	}

	if failed {
		finalText = tr.T("bot.lookup_failed")
		status = domain.StatusUnanswered
	} else if verdict.Kind == policy.Allow || verdict.Kind == policy.Redirect {
		finalText = c.translated(ctx, finalText, profile.LanguageCode)
		finalText = finalText + "\n\n" + tr.T("bot.disclaimer")
		if len(sources) > 0 {
			finalText = finalText + "\n\n" + tr.Tf("bot.sources", strings.Join(sources, ", "))
		}
	}

	responseTime := c.now().Sub(started).Seconds()

	c.mu.Lock()
	if c.current == nil || c.current.seq != flight.seq {
		c.mu.Unlock()
		c.log.Debug("discarding stale lookup result", "question", question)
		return
	}

	// Swap the placeholder for the real answer.
	if idx := flight.placeholderIdx; idx >= 0 && idx < len(c.state.Messages) {
		c.state.Messages = append(c.state.Messages[:idx], c.state.Messages[idx+1:]...)
	}

	options := answerFollowupOptions(tr)
	if failed {
		options = append([]domain.Option{opt(tr, "label.retry", string(MenuHealth))}, backOptions(tr)...)
	}

	c.appendBot(finalText, options, responseTime)
	transcriptLen := len(c.state.Messages)
	finalProfile := c.state.Profile
	c.current = nil
	c.mu.Unlock()

	if c.deps.Recorder != nil {
		entry := domain.QueryLogEntry{
			QueryText:           question,
			ResponseText:        finalText,
			ResponseTimeSeconds: responseTime,
			Topic:               topic,
			Status:              status,
		}
		c.deps.Recorder.RecordExchange(context.Background(), entry, transcriptLen, finalProfile)
	}

	c.speak(finalText)
}

func (c *Controller) translated(ctx context.Context, text, lang string) string {
	if c.deps.Translator == nil || lang == "" || lang == c.cfg.DefaultLanguage {
		return text
	}

	translatedText, err := c.deps.Translator.Translate(ctx, text, lang)
	if err != nil {
		c.log.Warn("answer translation failed", "target", lang, "error", err)
		return text
	}

	return translatedText
}

// --- rendering ------------------------------------------------------------

func (c *Controller) render(m menu) {
	c.appendBot(m.text, m.options, 0)
}

func (c *Controller) appendBot(text string, options []domain.Option, responseTime float64) {
	c.state.Messages = append(c.state.Messages, domain.Message{
		Role:                domain.RoleBot,
		Text:                text,
		Timestamp:           c.now(),
		Options:             options,
		ResponseTimeSeconds: responseTime,
	})
}

func (c *Controller) appendUser(text string) {
	c.state.Messages = append(c.state.Messages, domain.Message{
		Role:      domain.RoleUser,
		Text:      text,
		Timestamp: c.now(),
	})
}

func (c *Controller) transitionFlow(to Flow) {
	from := c.state.CurrentFlow
	if from == to {
		return
	}

	c.state.CurrentFlow = to
	flowTransitionRecorder(string(from), string(to))
}

func (c *Controller) translator() i18n.Translator {
	return c.translatorFor(c.state.Profile.LanguageCode)
}

func (c *Controller) translatorFor(lang string) i18n.Translator {
	if lang == "" {
		lang = c.cfg.DefaultLanguage
	}

	return c.deps.Catalog.Translator(lang)
}

func (c *Controller) languageLabel(code string) string {
	if code == "" {
		code = c.cfg.DefaultLanguage
	}

	return c.deps.Catalog.Translator(c.cfg.DefaultLanguage).T("langname." + code)
}

func (c *Controller) profileCopy() domain.UserProfile {
	c.mu.Lock()
	defer c.mu.Unlock()

	profile := c.state.Profile
	profile.OwnedCourseCategories = append([]string(nil), profile.OwnedCourseCategories...)
	return profile
}

func (c *Controller) queryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.QueryCount
}

func (c *Controller) speak(text string) {
	if c.deps.Speech == nil {
		return
	}

	c.deps.Speech.Speak(context.Background(), text)
}
