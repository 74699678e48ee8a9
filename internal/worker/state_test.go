package worker

import (
	"reflect"
	"testing"
)

func TestParseLabels(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   Status
	}{
		{"none", nil, Status{State: Pending}},
		{"unrelated", []string{"video", "urgent"}, Status{State: Pending}},
		{"retry", []string{"video", "agent-retry-2"}, Status{State: Retrying, Attempts: 2}},
		{"done", []string{"agent-done"}, Status{State: Done}},
		{"failed wins over retry", []string{"agent-retry-3", "agent-failed"}, Status{State: Failed, Attempts: 3}},
		{"failed wins over done", []string{"agent-done", "agent-failed"}, Status{State: Failed}},
		{"garbage suffix", []string{"agent-retry-x"}, Status{State: Pending}},
		{"negative suffix", []string{"agent-retry--1"}, Status{State: Pending}},
		{"highest retry", []string{"agent-retry-1", "agent-retry-2"}, Status{State: Retrying, Attempts: 2}},
		{"zero retry", []string{"agent-retry-0"}, Status{State: Pending}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLabels(tt.labels); got != tt.want {
				t.Errorf("ParseLabels(%v) = %+v, want %+v", tt.labels, got, tt.want)
			}
		})
	}
}

func TestStatusLabels(t *testing.T) {
	existing := []string{"video", "agent-retry-1", "urgent", "agent-retry-x"}
	tests := []struct {
		name   string
		status Status
		want   []string
	}{
		{"retrying", Status{State: Retrying, Attempts: 2}, []string{"video", "urgent", "agent-retry-2"}},
		{"done", Status{State: Done, Attempts: 1}, []string{"video", "urgent", "agent-done"}},
		{"failed", Status{State: Failed, Attempts: 3}, []string{"video", "urgent", "agent-failed"}},
		{"pending", Status{State: Pending}, []string{"video", "urgent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.status.Labels(existing)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Labels() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusLabelsExclusive(t *testing.T) {
	labels := []string{"agent-done", "agent-failed", "agent-retry-1", "agent-retry-2", "keep"}
	for _, st := range []Status{
		{State: Pending},
		{State: Retrying, Attempts: 1},
		{State: Done},
		{State: Failed, Attempts: 3},
	} {
		got := st.Labels(labels)
		var terminal, retry int
		for _, l := range got {
			switch {
			case l == LabelDone || l == LabelFailed:
				terminal++
			case isAgentLabel(l):
				retry++
			}
		}
		if terminal > 1 || retry > 1 || terminal+retry > 1 {
			t.Errorf("%v: labels %v carry more than one agent label", st.State, got)
		}
		if got[0] != "keep" {
			t.Errorf("%v: non-agent label dropped: %v", st.State, got)
		}
		if back := ParseLabels(got); back.State != st.State {
			t.Errorf("%v: round trip gave %v", st.State, back.State)
		}
	}
}

func TestStateString(t *testing.T) {
	if Retrying.String() != "retrying" || State(9).String() != "State(9)" {
		t.Errorf("unexpected names: %s, %s", Retrying, State(9))
	}
	if !Done.Terminal() || !Failed.Terminal() || Retrying.Terminal() {
		t.Error("Terminal() misclassifies states")
	}
}
