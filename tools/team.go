package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/armatrix/orchestra-go/teams"
)

// Names of the team tools.
const (
	SendMessageName  = "SendMessage"
	BroadcastName    = "Broadcast"
	ReadMessagesName = "ReadMessages"
	TaskListName     = "TaskList"
)

// TeamToolNames lists every team tool, for allow/deny policies.
var TeamToolNames = []string{SendMessageName, BroadcastName, ReadMessagesName, TaskListName}

// RegisterTeamTools registers the team tools for one agent. The tools act with
// agentID as the sender identity.
func RegisterTeamTools(r *Registry, coord *teams.Coordinator, agentID string) {
	Register[SendMessageInput](r, &SendMessageTool{Coord: coord, Sender: agentID})
	Register[BroadcastInput](r, &BroadcastTool{Coord: coord, Sender: agentID})
	Register[ReadMessagesInput](r, &ReadMessagesTool{Coord: coord, Reader: agentID})
	Register[TaskListInput](r, &TaskListTool{Coord: coord})
}

// SendMessageInput defines the input for the SendMessage tool.
type SendMessageInput struct {
	Recipient string `json:"recipient" jsonschema:"required,description=Name or id of the teammate to message or all for everyone"`
	Content   string `json:"content" jsonschema:"required,description=Message content"`
}

// SendMessageTool sends a direct message to another teammate.
type SendMessageTool struct {
	Coord  *teams.Coordinator
	Sender string
}

var _ Tool[SendMessageInput] = (*SendMessageTool)(nil)

func (t *SendMessageTool) Name() string { return SendMessageName }
func (t *SendMessageTool) Description() string {
	return "Send a direct message to a specific teammate"
}

func (t *SendMessageTool) Execute(_ context.Context, input SendMessageInput) (*Result, error) {
	if input.Recipient == "" {
		return ErrorResult("recipient is required"), nil
	}
	if input.Content == "" {
		return ErrorResult("content is required"), nil
	}
	msgs, err := t.Coord.SendMessage(t.Sender, input.Recipient, input.Content)
	if err != nil {
		return ErrorResult(fmt.Sprintf("failed to send message: %s", err.Error())), nil
	}
	return TextResult(fmt.Sprintf("Message delivered to %d recipient(s)", len(msgs))), nil
}

// BroadcastInput defines the input for the Broadcast tool.
type BroadcastInput struct {
	Content string `json:"content" jsonschema:"required,description=Message to send to every teammate"`
}

// BroadcastTool sends a message to every other teammate.
type BroadcastTool struct {
	Coord  *teams.Coordinator
	Sender string
}

var _ Tool[BroadcastInput] = (*BroadcastTool)(nil)

func (t *BroadcastTool) Name() string { return BroadcastName }
func (t *BroadcastTool) Description() string {
	return "Broadcast a message to all teammates"
}

func (t *BroadcastTool) Execute(_ context.Context, input BroadcastInput) (*Result, error) {
	if input.Content == "" {
		return ErrorResult("content is required"), nil
	}
	msgs, err := t.Coord.Broadcast(t.Sender, input.Content)
	if err != nil {
		return ErrorResult(fmt.Sprintf("failed to broadcast: %s", err.Error())), nil
	}
	return TextResult(fmt.Sprintf("Broadcast delivered to %d teammate(s)", len(msgs))), nil
}

// ReadMessagesInput defines the input for the ReadMessages tool.
type ReadMessagesInput struct {
	IncludeRead bool `json:"include_read,omitempty" jsonschema:"description=Also return messages already read"`
}

// ReadMessagesTool returns the caller's inbox and marks it read.
type ReadMessagesTool struct {
	Coord  *teams.Coordinator
	Reader string
}

var _ Tool[ReadMessagesInput] = (*ReadMessagesTool)(nil)

func (t *ReadMessagesTool) Name() string { return ReadMessagesName }
func (t *ReadMessagesTool) Description() string {
	return "Read messages sent to you by teammates"
}

func (t *ReadMessagesTool) Execute(_ context.Context, input ReadMessagesInput) (*Result, error) {
	box := t.Coord.Mailbox()
	var msgs []*teams.Message
	if input.IncludeRead {
		msgs = box.Messages(t.Reader)
	} else {
		msgs = box.UnreadMessages(t.Reader)
	}
	if len(msgs) == 0 {
		return TextResult("No messages."), nil
	}

	var sb strings.Builder
	for _, m := range msgs {
		from := m.From
		if tm, ok := t.Coord.Teammate(m.From); ok {
			from = tm.DisplayName()
		}
		fmt.Fprintf(&sb, "[%s] %s: %s\n", m.Timestamp.Format("15:04:05"), from, m.Content)
		box.MarkRead(m.ID)
	}
	return TextResult(strings.TrimRight(sb.String(), "\n")), nil
}

// TaskListInput defines the input for the TaskList tool.
type TaskListInput struct {
	Status string `json:"status,omitempty" jsonschema:"enum=pending,enum=in_progress,enum=completed,enum=failed,description=Only list tasks with this status"`
}

// TaskListTool shows the team's task board.
type TaskListTool struct {
	Coord *teams.Coordinator
}

var _ Tool[TaskListInput] = (*TaskListTool)(nil)

func (t *TaskListTool) Name() string { return TaskListName }
func (t *TaskListTool) Description() string {
	return "List the team's tasks with their status and owner"
}

func (t *TaskListTool) Execute(_ context.Context, input TaskListInput) (*Result, error) {
	var sb strings.Builder
	for _, task := range t.Coord.Tasks().List() {
		if input.Status != "" && string(task.Status) != input.Status {
			continue
		}
		fmt.Fprintf(&sb, "- [%s] %s", task.Status, task.Title)
		if task.ClaimedBy != "" {
			owner := task.ClaimedBy
			if tm, ok := t.Coord.Teammate(task.ClaimedBy); ok {
				owner = tm.DisplayName()
			}
			fmt.Fprintf(&sb, " (owner: %s)", owner)
		}
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		return TextResult("No tasks."), nil
	}
	return TextResult(strings.TrimRight(sb.String(), "\n")), nil
}
