package orchestra

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/armatrix/orchestra-go/decompose"
	"github.com/armatrix/orchestra-go/llm"
	"github.com/armatrix/orchestra-go/llm/llmtest"
	"github.com/armatrix/orchestra-go/teams"
	"github.com/armatrix/orchestra-go/tools"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const seqPlan = `{"mainTitle":"Article","tasks":[
 {"id":"t1","title":"Research","description":"Research the topic.","suggestedAgent":{"name":"Researcher","role":"research","skills":["research"]}},
 {"id":"t2","title":"Write","description":"Write the article.","dependencies":["t1"],"suggestedAgent":{"name":"Writer","role":"writing","skills":["writing"]}}
],"strategy":"sequential_agents"}`

const parPlan = `{"mainTitle":"Review","tasks":[
 {"id":"a","title":"Alpha","description":"Do alpha.","executionMode":"iterative","suggestedAgent":{"name":"Analyst","role":"analysis"}},
 {"id":"b","title":"Beta","description":"Do beta.","executionMode":"iterative","suggestedAgent":{"name":"Analyst","role":"analysis"}},
 {"id":"c","title":"Gamma","description":"Do gamma.","executionMode":"iterative","suggestedAgent":{"name":"Analyst","role":"analysis"}}
],"requiresSynthesis":true,"strategy":"parallel_agents"}`

var titlePattern = regexp.MustCompile(`\*\*(.+?)\*\*`)

func taskTitle(req *llm.Request) string {
	if m := titlePattern.FindStringSubmatch(req.System); m != nil {
		return m[1]
	}
	return ""
}

func reply(req *llm.Request, content string) *llm.Response {
	return &llm.Response{
		Content:    content,
		StopReason: llm.StopEndTurn,
		Usage:      llm.Usage{Model: req.Model.Model, InputTokens: 100, OutputTokens: 50},
	}
}

type agentFunc func(ctx context.Context, req *llm.Request) (*llm.Response, error)

func echoAgent(_ context.Context, req *llm.Request) (*llm.Response, error) {
	return reply(req, "output:"+taskTitle(req)), nil
}

// fakeClient answers planner, synthesis and agent requests.
func fakeClient(plan string, agent agentFunc) *llmtest.Client {
	c := llmtest.New()
	c.Fallback = func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		switch {
		case strings.Contains(req.System, "planning engine"):
			return reply(req, plan), nil
		case strings.Contains(req.System, "combine the work"):
			return reply(req, "SYNTHESIZED"), nil
		default:
			return agent(ctx, req)
		}
	}
	return c
}

func agentRequests(c *llmtest.Client) []*llm.Request {
	var out []*llm.Request
	for _, r := range c.Requests() {
		if !strings.Contains(r.System, "planning engine") && !strings.Contains(r.System, "combine the work") {
			out = append(out, r)
		}
	}
	return out
}

func TestOrchestrator_NoProvider(t *testing.T) {
	o := New()

	_, err := o.Execute(context.Background(), "do something")
	assert.ErrorIs(t, err, ErrNoProvider)

	stream := o.Run(context.Background(), "do something")
	assert.False(t, stream.Next())
	assert.ErrorIs(t, stream.Err(), ErrNoProvider)

	_, err = o.Plan(context.Background(), "do something")
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestOrchestrator_EmptyPrompt(t *testing.T) {
	_, err := New(WithClient(llmtest.New())).Execute(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestOrchestrator_Sequential(t *testing.T) {
	client := fakeClient(seqPlan, echoAgent)
	o := New(WithClient(client))

	res, err := o.Execute(context.Background(), "Write an article about bees")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "output:Write", res.Content)
	assert.False(t, res.Synthesized)
	assert.Equal(t, decompose.SourceLLM, res.Plan.Source)
	assert.Equal(t, 2, res.Counts.Completed)
	require.NotNil(t, res.Team)
	assert.Equal(t, teams.TeamCompleted, res.Team.State)
	assert.Len(t, res.Team.MemberIDs, 2)

	research, ok := res.Task("t1")
	require.True(t, ok)
	assert.Equal(t, "Researcher", research.AgentName)
	assert.Equal(t, "output:Research", research.Output)
	assert.Equal(t, 1, research.Attempts)

	write, ok := res.Task("t2")
	require.True(t, ok)
	assert.Equal(t, "Writer", write.AgentName)

	reqs := agentRequests(client)
	require.Len(t, reqs, 2)
	assert.Equal(t, "Research", taskTitle(reqs[0]))
	assert.Contains(t, reqs[1].System, "## Context from completed tasks")
	assert.Contains(t, reqs[1].System, "output:Research")
	assert.Equal(t, llm.DefaultTierModels[llm.TierBalanced], reqs[0].Model.Model)

	assert.True(t, res.Usage.InputTokens > 0)
	assert.True(t, res.Cost.IsPositive())
}

func TestOrchestrator_Events(t *testing.T) {
	o := New(WithClient(fakeClient(seqPlan, echoAgent)))
	stream := o.Run(context.Background(), "Write an article about bees")

	var events []Event
	for stream.Next() {
		events = append(events, stream.Current())
	}
	require.NoError(t, stream.Err())
	require.NotNil(t, stream.Result())
	require.NotEmpty(t, events)

	assert.Equal(t, EventPlan, events[0].Type())
	assert.Equal(t, EventResult, events[len(events)-1].Type())

	counts := make(map[EventType]int)
	teamTypes := make(map[teams.EventType]int)
	for _, e := range events {
		counts[e.Type()]++
		if te, ok := e.(*TeamEvent); ok {
			teamTypes[te.Event.Type]++
		}
	}
	assert.Equal(t, 2, counts[EventTaskStart])
	assert.Equal(t, 2, counts[EventTaskDone])
	assert.Equal(t, 2, counts[EventTaskProgress])
	assert.Equal(t, 2, counts[EventTaskStream])
	assert.Equal(t, 2, teamTypes[teams.EventTaskAdded])
	assert.Equal(t, 2, teamTypes[teams.EventTaskClaimed])
	assert.Equal(t, 2, teamTypes[teams.EventTaskCompleted])
	assert.Equal(t, 1, teamTypes[teams.EventTasksUnblocked])
}

func TestOrchestrator_ParallelSynthesis(t *testing.T) {
	var (
		running atomic.Int32
		peak    atomic.Int32
	)
	agent := func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return echoAgent(ctx, req)
	}
	client := fakeClient(parPlan, agent)
	o := New(WithClient(client), WithMaxConcurrency(2))

	res, err := o.Execute(context.Background(), "Review the proposal")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Synthesized)
	assert.Equal(t, "SYNTHESIZED", res.Content)
	assert.Equal(t, 3, res.Counts.Completed)
	assert.LessOrEqual(t, peak.Load(), int32(2))

	// One persona shared by all three tasks.
	assert.Len(t, res.Team.MemberIDs, 1)

	for _, req := range agentRequests(client) {
		var names []string
		for _, d := range req.Tools {
			names = append(names, d.Name)
		}
		assert.Subset(t, names, tools.TeamToolNames)
	}
}

func TestOrchestrator_ParallelIsolatedHasNoTeamTools(t *testing.T) {
	client := fakeClient(parPlan, echoAgent)
	o := New(WithClient(client), WithStrategy(decompose.StrategyParallelIsolated))

	res, err := o.Execute(context.Background(), "Review the proposal")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, decompose.StrategyParallelIsolated, res.Plan.Strategy)

	for _, req := range agentRequests(client) {
		assert.Empty(t, req.Tools)
	}
}

func TestOrchestrator_RetryThenSucceed(t *testing.T) {
	var calls atomic.Int32
	agent := func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		if taskTitle(req) == "Research" && calls.Add(1) == 1 {
			return nil, errors.New("overloaded")
		}
		return echoAgent(ctx, req)
	}
	res, err := New(WithClient(fakeClient(seqPlan, agent))).Execute(context.Background(), "bees")
	require.NoError(t, err)
	assert.True(t, res.Success)

	research, _ := res.Task("t1")
	assert.Equal(t, 2, research.Attempts)
	assert.Equal(t, teams.StatusCompleted, research.Status)
}

func TestOrchestrator_FailurePropagates(t *testing.T) {
	agent := func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		if taskTitle(req) == "Research" {
			return nil, errors.New("overloaded")
		}
		return echoAgent(ctx, req)
	}
	client := fakeClient(seqPlan, agent)
	res, err := New(WithClient(client), WithTaskRetries(0)).Execute(context.Background(), "bees")
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Empty(t, res.Content)
	assert.Equal(t, 2, res.Counts.Failed)

	research, _ := res.Task("t1")
	assert.Equal(t, "overloaded", research.Error)
	assert.Equal(t, 1, research.Attempts)

	write, _ := res.Task("t2")
	assert.Equal(t, teams.StatusFailed, write.Status)
	assert.Contains(t, write.Error, `dependency "Research" failed`)
	assert.Zero(t, write.Attempts)

	assert.Len(t, agentRequests(client), 1)
}

func TestOrchestrator_HeuristicFallback(t *testing.T) {
	client := fakeClient("I would rather not plan today.", echoAgent)
	res, err := New(WithClient(client)).Execute(context.Background(), "Write a poem about autumn")
	require.NoError(t, err)

	assert.Equal(t, decompose.SourceHeuristic, res.Plan.Source)
	assert.True(t, res.Success)
	assert.Equal(t, "output:Edit and polish", res.Content)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "heuristic")
}

func TestOrchestrator_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	agent := func(c context.Context, req *llm.Request) (*llm.Response, error) {
		resp, err := echoAgent(c, req)
		cancel()
		return resp, err
	}
	res, err := New(WithClient(fakeClient(seqPlan, agent))).Execute(ctx, "bees")
	require.NoError(t, err)

	assert.True(t, res.Cancelled)
	assert.False(t, res.Success)

	write, _ := res.Task("t2")
	assert.Equal(t, teams.StatusFailed, write.Status)
	assert.Equal(t, "run cancelled", write.Error)
}

func TestOrchestrator_Budget(t *testing.T) {
	client := fakeClient(seqPlan, echoAgent)
	o := New(WithClient(client), WithBudget(decimal.NewFromFloat(0.000001)))

	res, err := o.Execute(context.Background(), "bees")
	require.NoError(t, err)

	research, _ := res.Task("t1")
	assert.Equal(t, teams.StatusCompleted, research.Status)
	write, _ := res.Task("t2")
	assert.Equal(t, "budget exhausted", write.Error)
	assert.Len(t, agentRequests(client), 1)
}

func TestOrchestrator_UsageIncludesPlanning(t *testing.T) {
	client := fakeClient(seqPlan, echoAgent)
	o := New(WithClient(client), WithPlannerModel(llm.ModelConfig{Model: llm.DefaultModel}))

	res, err := o.Execute(context.Background(), "bees")
	require.NoError(t, err)
	require.Len(t, agentRequests(client), 2)
	assert.Equal(t, 300, res.Usage.InputTokens)
	assert.Equal(t, 150, res.Usage.OutputTokens)
	assert.True(t, res.Cost.GreaterThan(decimal.Zero))
}

func TestOrchestrator_PlanningSpendCountsAgainstBudget(t *testing.T) {
	client := fakeClient(seqPlan, echoAgent)
	o := New(WithClient(client),
		WithPlannerModel(llm.ModelConfig{Model: llm.DefaultModel}),
		WithBudget(decimal.NewFromFloat(0.001)))

	res, err := o.Execute(context.Background(), "bees")
	require.NoError(t, err)
	assert.Empty(t, agentRequests(client))
	research, _ := res.Task("t1")
	assert.Equal(t, "budget exhausted", research.Error)
	assert.False(t, res.Success)
}

func TestOrchestrator_SingleAgent(t *testing.T) {
	client := fakeClient(seqPlan, echoAgent)
	res, err := New(WithClient(client), WithStrategy(decompose.StrategySingleAgent)).Execute(context.Background(), "bees")
	require.NoError(t, err)

	research, _ := res.Task("t1")
	write, _ := res.Task("t2")
	assert.Equal(t, research.AgentID, write.AgentID)
}

func TestOrchestrator_IterativeDeepDoublesBudget(t *testing.T) {
	plan := `{"tasks":[{"id":"t1","title":"Deep","executionMode":"iterative"}],"strategy":"iterative_deep"}`
	agent := func(_ context.Context, req *llm.Request) (*llm.Response, error) {
		return &llm.Response{
			Content:    "thinking",
			ToolCalls:  []llm.ToolCall{{ID: "c", Name: tools.TaskListName, Input: json.RawMessage(`{}`)}},
			StopReason: llm.StopToolUse,
		}, nil
	}
	res, err := New(WithClient(fakeClient(plan, agent)), WithMaxTurns(2)).Execute(context.Background(), "think hard")
	require.NoError(t, err)

	deep, _ := res.Task("t1")
	assert.Equal(t, 4, deep.Turns)
	assert.Equal(t, "thinking", res.Content)
}

func TestOrchestrator_ConfiguredAgentsAndTeamMessaging(t *testing.T) {
	var mu sync.Mutex
	sent := false
	agent := func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		mu.Lock()
		first := !sent
		sent = true
		mu.Unlock()
		if first {
			return &llm.Response{
				ToolCalls:  []llm.ToolCall{{ID: "m1", Name: tools.BroadcastName, Input: json.RawMessage(`{"content":"starting research"}`)}},
				StopReason: llm.StopToolUse,
			}, nil
		}
		return echoAgent(ctx, req)
	}
	plan := `{"tasks":[{"id":"t1","title":"Research","executionMode":"iterative","suggestedAgent":{"name":"Researcher","role":"research","skills":["research"]}}]}`

	ada := teams.Teammate{ID: "ada", Name: "Ada", Role: "research", Tags: []string{"research"}}
	stream := New(WithClient(fakeClient(plan, agent)), WithAgents(ada)).Run(context.Background(), "bees")

	var messages []*teams.Message
	for stream.Next() {
		if te, ok := stream.Current().(*TeamEvent); ok && te.Event.Type == teams.EventMessageSent {
			messages = append(messages, te.Event.Message)
		}
	}
	require.NoError(t, stream.Err())
	res := stream.Result()

	research, _ := res.Task("t1")
	assert.Equal(t, "ada", research.AgentID, "configured agents win ties")
	assert.Len(t, res.Team.MemberIDs, 2)

	require.Len(t, messages, 2, "broadcast reaches the lead and the other member")
	for _, m := range messages {
		assert.Equal(t, "ada", m.From)
		assert.Equal(t, "starting research", m.Content)
	}
}

func TestOrchestrator_PlanStrategyOverride(t *testing.T) {
	o := New(WithClient(fakeClient(seqPlan, echoAgent)), WithStrategy(decompose.StrategyIterativeDeep))
	plan, err := o.Plan(context.Background(), "bees")
	require.NoError(t, err)
	assert.Equal(t, decompose.StrategyIterativeDeep, plan.Strategy)
	assert.Len(t, plan.Tasks, 2)
}
