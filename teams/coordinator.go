package teams

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/armatrix/orchestra-go/internal/ids"
)

// Sentinel errors returned by the coordinator.
var (
	ErrTeamActive        = errors.New("teams: a team is already active")
	ErrNoActiveTeam      = errors.New("teams: no active team")
	ErrCannotRemoveLead  = errors.New("teams: cannot remove the team lead")
	ErrUnknownTeammate   = errors.New("teams: unknown teammate")
	ErrDuplicateTeammate = errors.New("teams: duplicate teammate id")
)

// RecipientAll addresses a message to every registered teammate.
const RecipientAll = "all"

// TeamState is the lifecycle state of a team.
type TeamState string

const (
	TeamActive    TeamState = "active"
	TeamCompleted TeamState = "completed"
	TeamDisbanded TeamState = "disbanded"
)

// Team is the named group of agents working towards a goal.
type Team struct {
	ID        string
	Name      string
	Goal      string
	LeadID    string
	MemberIDs []string
	State     TeamState
	CreatedAt time.Time
}

func (t *Team) clone() *Team {
	cp := *t
	cp.MemberIDs = cloneStrings(t.MemberIDs)
	return &cp
}

// MemberStatus is a teammate's view in a status snapshot.
type MemberStatus struct {
	Teammate    *Teammate
	IsLead      bool
	CurrentTask string
	Unread      int
}

// Status is a point-in-time snapshot of the team.
type Status struct {
	Team    *Team
	Tasks   TaskCounts
	Members []MemberStatus
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(l *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l }
}

// Coordinator owns one team at a time together with its task list, mailbox
// and teammate registry.
type Coordinator struct {
	mu     sync.RWMutex
	team   *Team
	agents map[string]*Teammate
	order  []string

	tasks   *SharedTaskList
	mailbox *Mailbox
	obs     observers
	logger  *zap.Logger
}

// NewCoordinator creates a coordinator with no active team. Task-list and
// mailbox events are forwarded to the coordinator's subscribers.
func NewCoordinator(opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		agents:  make(map[string]*Teammate),
		tasks:   NewSharedTaskList(),
		mailbox: NewMailbox(),
		logger:  zap.NewNop(),
	}
	for _, fn := range opts {
		fn(c)
	}
	c.tasks.Subscribe(c.obs.emit)
	c.mailbox.Subscribe(c.obs.emit)
	return c
}

// Subscribe registers fn for every task and message event of the team.
// Cleanup removes all subscribers.
func (c *Coordinator) Subscribe(fn Listener) func() {
	return c.obs.subscribe(fn)
}

// Tasks returns the team's task list.
func (c *Coordinator) Tasks() *SharedTaskList { return c.tasks }

// Mailbox returns the team's mailbox.
func (c *Coordinator) Mailbox() *Mailbox { return c.mailbox }

// CreateTeam registers lead and teammates and activates a new team. Missing
// teammate ids are generated.
func (c *Coordinator) CreateTeam(name string, lead Teammate, teammates []Teammate, goal string) (*Team, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.team != nil && c.team.State == TeamActive {
		return nil, fmt.Errorf("%w: %q", ErrTeamActive, c.team.Name)
	}

	c.resetLocked()
	leadRec, err := c.registerLocked(lead)
	if err != nil {
		c.resetLocked()
		return nil, err
	}
	team := &Team{
		ID:        ids.New(ids.PrefixTeam),
		Name:      name,
		Goal:      goal,
		LeadID:    leadRec.ID,
		State:     TeamActive,
		CreatedAt: time.Now(),
	}
	for _, tm := range teammates {
		rec, err := c.registerLocked(tm)
		if err != nil {
			c.resetLocked()
			return nil, err
		}
		team.MemberIDs = append(team.MemberIDs, rec.ID)
	}
	c.team = team

	c.logger.Info("team created",
		zap.String("team", name),
		zap.String("lead", leadRec.DisplayName()),
		zap.Int("members", len(team.MemberIDs)),
	)
	return team.clone(), nil
}

// Team returns a snapshot of the current team.
func (c *Coordinator) Team() (*Team, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.team == nil {
		return nil, false
	}
	return c.team.clone(), true
}

// CompleteTeam marks the active team completed.
func (c *Coordinator) CompleteTeam() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.team == nil || c.team.State != TeamActive {
		return ErrNoActiveTeam
	}
	c.team.State = TeamCompleted
	return nil
}

// Cleanup disbands the team, detaches subscribers and clears the task list,
// mailbox and registry. It is safe to call repeatedly.
func (c *Coordinator) Cleanup() {
	c.mu.Lock()
	if c.team != nil {
		c.team.State = TeamDisbanded
		c.logger.Info("team disbanded", zap.String("team", c.team.Name))
	}
	c.resetLocked()
	c.mu.Unlock()

	c.obs.reset()
}

func (c *Coordinator) resetLocked() {
	c.team = nil
	c.agents = make(map[string]*Teammate)
	c.order = nil
	c.tasks.Clear()
	c.mailbox.Clear()
}

func (c *Coordinator) registerLocked(t Teammate) (*Teammate, error) {
	rec := t.clone()
	if rec.ID == "" {
		rec.ID = ids.New(ids.PrefixAgent)
	}
	if _, exists := c.agents[rec.ID]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateTeammate, rec.ID)
	}
	c.agents[rec.ID] = rec
	c.order = append(c.order, rec.ID)
	return rec, nil
}

// AddTasks adds tasks to the active team's list.
func (c *Coordinator) AddTasks(inputs []TaskInput) ([]*Task, error) {
	if !c.active() {
		return nil, ErrNoActiveTeam
	}
	return c.tasks.AddTasks(inputs)
}

// AddTeammate registers a new member of the active team.
func (c *Coordinator) AddTeammate(t Teammate) (*Teammate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.team == nil || c.team.State != TeamActive {
		return nil, ErrNoActiveTeam
	}
	rec, err := c.registerLocked(t)
	if err != nil {
		return nil, err
	}
	c.team.MemberIDs = append(c.team.MemberIDs, rec.ID)
	return rec.clone(), nil
}

// RemoveTeammate unregisters a member. The lead cannot be removed.
func (c *Coordinator) RemoveTeammate(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.team == nil {
		return ErrNoActiveTeam
	}
	if id == c.team.LeadID {
		return ErrCannotRemoveLead
	}
	if _, ok := c.agents[id]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTeammate, id)
	}
	delete(c.agents, id)
	c.order = removeString(c.order, id)
	c.team.MemberIDs = removeString(c.team.MemberIDs, id)
	return nil
}

// Teammate looks up a teammate by id, or by name case-insensitively.
func (c *Coordinator) Teammate(ref string) (*Teammate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if t := c.resolveLocked(ref); t != nil {
		return t.clone(), true
	}
	return nil, false
}

// Teammates returns every registered teammate, lead first.
func (c *Coordinator) Teammates() []*Teammate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Teammate, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.agents[id].clone())
	}
	return out
}

func (c *Coordinator) resolveLocked(ref string) *Teammate {
	if t, ok := c.agents[ref]; ok {
		return t
	}
	for _, id := range c.order {
		if strings.EqualFold(c.agents[id].Name, ref) {
			return c.agents[id]
		}
	}
	return nil
}

// SendMessage delivers a message from one teammate to another. The recipient
// RecipientAll broadcasts to every other registered teammate. Teammates may
// be referenced by id or name.
func (c *Coordinator) SendMessage(from, to, content string) ([]*Message, error) {
	if strings.EqualFold(to, RecipientAll) {
		return c.Broadcast(from, content)
	}

	c.mu.RLock()
	sender := c.resolveLocked(from)
	recipient := c.resolveLocked(to)
	c.mu.RUnlock()

	if sender == nil {
		return nil, fmt.Errorf("%w: sender %q", ErrUnknownTeammate, from)
	}
	if recipient == nil {
		return nil, fmt.Errorf("%w: recipient %q", ErrUnknownTeammate, to)
	}
	return []*Message{c.mailbox.SendMessage(sender.ID, recipient.ID, content)}, nil
}

// Broadcast delivers content to every registered teammate except the sender.
func (c *Coordinator) Broadcast(from, content string) ([]*Message, error) {
	c.mu.RLock()
	sender := c.resolveLocked(from)
	recipients := make([]string, len(c.order))
	copy(recipients, c.order)
	c.mu.RUnlock()

	if sender == nil {
		return nil, fmt.Errorf("%w: sender %q", ErrUnknownTeammate, from)
	}
	return c.mailbox.Broadcast(sender.ID, recipients, content), nil
}

// BestTeammateForTask picks the member whose tags, role, name and
// instructions best match the task's hints. Without a positive score the
// first member not currently working on a task is returned, then the first
// member. The lead is only chosen when the team has no other members.
func (c *Coordinator) BestTeammateForTask(task *Task) (*Teammate, bool) {
	c.mu.RLock()
	var candidates []*Teammate
	var lead *Teammate
	if c.team != nil {
		lead = c.agents[c.team.LeadID]
		for _, id := range c.team.MemberIDs {
			if t, ok := c.agents[id]; ok {
				candidates = append(candidates, t.clone())
			}
		}
	}
	if len(candidates) == 0 && lead != nil {
		candidates = append(candidates, lead.clone())
	}
	c.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, false
	}
	if best := bestMatch(candidates, task.Hints); best != nil {
		return best, true
	}

	busy := make(map[string]bool)
	for _, t := range c.tasks.List() {
		if t.Status == StatusInProgress {
			busy[t.ClaimedBy] = true
		}
	}
	for _, cand := range candidates {
		if !busy[cand.ID] {
			return cand, true
		}
	}
	return candidates[0], true
}

// Status returns a snapshot of the team, its task counts and its members.
func (c *Coordinator) Status() (*Status, error) {
	c.mu.RLock()
	if c.team == nil {
		c.mu.RUnlock()
		return nil, ErrNoActiveTeam
	}
	team := c.team.clone()
	members := make([]*Teammate, 0, len(c.order))
	for _, id := range c.order {
		members = append(members, c.agents[id].clone())
	}
	c.mu.RUnlock()

	current := make(map[string]string)
	for _, t := range c.tasks.List() {
		if t.Status == StatusInProgress {
			current[t.ClaimedBy] = t.ID
		}
	}

	st := &Status{Team: team, Tasks: c.tasks.Counts()}
	for _, m := range members {
		st.Members = append(st.Members, MemberStatus{
			Teammate:    m,
			IsLead:      m.ID == team.LeadID,
			CurrentTask: current[m.ID],
			Unread:      c.mailbox.UnreadCount(m.ID),
		})
	}
	return st, nil
}

func (c *Coordinator) active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.team != nil && c.team.State == TeamActive
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
