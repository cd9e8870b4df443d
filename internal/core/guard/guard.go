package guard

import (
	"fmt"
	"time"

	"flowforge/internal/core/batch"
	"flowforge/internal/core/post"
)

// MinScheduleGap is the minimum spacing between two scheduled posts in a
// batch publish plan.
const MinScheduleGap = 30 * time.Minute

// PostFacts is the aggregate view of a single post that guards evaluate.
type PostFacts struct {
	ID             string
	Type           post.Type
	ScriptApproved bool
	PromptBuilt    bool
	VideoStatus    post.VideoStatus
	QAPass         bool
	ScheduledAt    *time.Time
}

// Snapshot is an immutable view of a batch aggregate at evaluation time.
type Snapshot struct {
	BatchID string
	State   batch.State
	Counts  batch.TypeCounts
	Posts   []PostFacts
}

// Decision is the outcome of evaluating a requested transition. Denials
// always name the exact unmet facts in Details.
type Decision struct {
	Allowed bool
	Reason  string
	Details map[string]any
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string, details map[string]any) Decision {
	return Decision{Allowed: false, Reason: reason, Details: details}
}

// transitions is the fixed, compile-time-known state graph. The only
// backward edges are the explicit regeneration paths out of QA.
var transitions = map[batch.State][]batch.State{
	batch.StateSetup:        {batch.StateSeeded},
	batch.StateSeeded:       {batch.StateScripted},
	batch.StateScripted:     {batch.StatePromptsBuilt},
	batch.StatePromptsBuilt: {batch.StateQA},
	batch.StateQA:           {batch.StatePublishPlan, batch.StateScripted, batch.StatePromptsBuilt},
	batch.StatePublishPlan:  {batch.StateComplete},
	batch.StateComplete:     {},
}

// NextStates returns the table-legal targets from the given state.
func NextStates(from batch.State) []batch.State {
	targets := transitions[from]
	cp := make([]batch.State, len(targets))
	copy(cp, targets)
	return cp
}

func tableAllows(from, to batch.State) bool {
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Evaluate decides whether the requested transition is currently permitted.
// Pure function of (snapshot, target, now): no I/O, deterministic, safe for
// concurrent use. now only participates in schedule checks.
func Evaluate(snap Snapshot, target batch.State, now time.Time) Decision {
	if !target.Valid() {
		return deny(fmt.Sprintf("unknown target state %q", string(target)), map[string]any{
			"target_state": string(target),
		})
	}
	if !tableAllows(snap.State, target) {
		allowed := transitions[snap.State]
		names := make([]string, len(allowed))
		for i, s := range allowed {
			names[i] = string(s)
		}
		return deny(
			fmt.Sprintf("transition %s -> %s is not in the transition table", snap.State, target),
			map[string]any{
				"current_state":       string(snap.State),
				"target_state":        string(target),
				"allowed_transitions": names,
			},
		)
	}

	switch {
	case snap.State == batch.StateSetup && target == batch.StateSeeded:
		return checkSeeded(snap)
	case snap.State == batch.StateSeeded && target == batch.StateScripted:
		return checkScripted(snap)
	case snap.State == batch.StateScripted && target == batch.StatePromptsBuilt:
		return checkPromptsBuilt(snap)
	case snap.State == batch.StatePromptsBuilt && target == batch.StateQA:
		return checkVideosCompleted(snap)
	case snap.State == batch.StateQA && target == batch.StatePublishPlan:
		return checkQAPassed(snap)
	case snap.State == batch.StateQA && (target == batch.StateScripted || target == batch.StatePromptsBuilt):
		// Regeneration is gated on an explicit operator request, which is
		// exactly what reaching this evaluation means; the worker only ever
		// requests PROMPTS_BUILT -> QA.
		return allow()
	case snap.State == batch.StatePublishPlan && target == batch.StateComplete:
		return checkPublishPlan(snap, now)
	}
	return allow()
}

func checkSeeded(snap Snapshot) Decision {
	if len(snap.Posts) == 0 {
		return deny("batch has no posts", map[string]any{"posts_count": 0})
	}
	got := map[post.Type]int{}
	for _, p := range snap.Posts {
		got[p.Type]++
	}
	want := map[post.Type]int{
		post.TypeValue:     snap.Counts.Value,
		post.TypeLifestyle: snap.Counts.Lifestyle,
		post.TypeProduct:   snap.Counts.Product,
	}
	mismatches := map[string]any{}
	for typ, expected := range want {
		if got[typ] != expected {
			mismatches[string(typ)] = map[string]int{"expected": expected, "actual": got[typ]}
		}
	}
	if len(mismatches) > 0 {
		return deny("post counts do not match batch configuration", map[string]any{
			"count_mismatches": mismatches,
		})
	}
	return allow()
}

func checkScripted(snap Snapshot) Decision {
	var pending []string
	for _, p := range snap.Posts {
		if !p.ScriptApproved {
			pending = append(pending, p.ID)
		}
	}
	if len(pending) > 0 {
		return deny("not every post has an approved script", map[string]any{
			"pending_posts": pending,
		})
	}
	return allow()
}

func checkPromptsBuilt(snap Snapshot) Decision {
	var pending []string
	for _, p := range snap.Posts {
		if !p.PromptBuilt {
			pending = append(pending, p.ID)
		}
	}
	if len(pending) > 0 {
		return deny("not every post has a validated assembled prompt", map[string]any{
			"pending_posts": pending,
		})
	}
	return allow()
}

func checkVideosCompleted(snap Snapshot) Decision {
	var pending []string
	for _, p := range snap.Posts {
		if p.VideoStatus != post.VideoCompleted {
			pending = append(pending, p.ID)
		}
	}
	if len(pending) > 0 {
		return deny("not every post has a completed video", map[string]any{
			"pending_posts": pending,
		})
	}
	return allow()
}

func checkQAPassed(snap Snapshot) Decision {
	var pending []string
	for _, p := range snap.Posts {
		if !p.QAPass {
			pending = append(pending, p.ID)
		}
	}
	if len(pending) > 0 {
		return deny("not every post passed QA review", map[string]any{
			"pending_posts": pending,
		})
	}
	return allow()
}

func checkPublishPlan(snap Snapshot, now time.Time) Decision {
	var unscheduled, pastDue []string
	scheduled := make([]PostFacts, 0, len(snap.Posts))
	for _, p := range snap.Posts {
		if p.ScheduledAt == nil {
			unscheduled = append(unscheduled, p.ID)
			continue
		}
		if !p.ScheduledAt.After(now) {
			pastDue = append(pastDue, p.ID)
		}
		scheduled = append(scheduled, p)
	}
	if len(unscheduled) > 0 {
		return deny("publish plan is not confirmed for every post", map[string]any{
			"unscheduled_posts": unscheduled,
		})
	}
	if len(pastDue) > 0 {
		return deny("publish plan contains past-due schedule entries", map[string]any{
			"past_due_posts": pastDue,
		})
	}
	if overlaps := overlappingPosts(scheduled); len(overlaps) > 0 {
		return deny("publish plan contains overlapping schedule entries", map[string]any{
			"overlapping_posts": overlaps,
			"min_gap_minutes":   int(MinScheduleGap.Minutes()),
		})
	}
	return allow()
}

func overlappingPosts(posts []PostFacts) []string {
	sorted := make([]PostFacts, len(posts))
	copy(sorted, posts)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].ScheduledAt.Before(*sorted[j-1].ScheduledAt); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	var overlapping []string
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].ScheduledAt.Sub(*sorted[i-1].ScheduledAt)
		if gap < MinScheduleGap {
			overlapping = append(overlapping, sorted[i-1].ID, sorted[i].ID)
		}
	}
	return dedupe(overlapping)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
