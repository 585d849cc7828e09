package operant

import (
	"testing"
	"time"

	"github.com/opyrant/opyrant/operant/stimulus"
)

func TestTrialRecord(t *testing.T) {
	condition := stimulus.NewCondition("sPlus", true, true, false, []stimulus.Stimulus{
		{Name: "p1", Path: "/stims/p1.wav", Duration: 2 * time.Second},
	})
	stim := condition.Stimuli()[0]

	trial := &Trial{
		Session:   3,
		Index:     7,
		Time:      time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		Condition: condition,
		Stimulus:  &stim,
		Response:  true,
		RT:        420 * time.Millisecond,
		Correct:   true,
		Rewarded:  true,
	}
	trial.Annotate("rig", "box07")

	record := trial.Record("b42", "gonogo")
	if record.Subject != "b42" || record.Behavior != "gonogo" {
		t.Errorf("identity: %+v", record)
	}
	if record.Session != 3 || record.Index != 7 {
		t.Errorf("numbering: %+v", record)
	}
	if record.Condition != "sPlus" || record.Stimulus != "/stims/p1.wav" {
		t.Errorf("stimulus fields: %+v", record)
	}
	if !record.Response || !record.Correct || !record.Reward || record.Punish {
		t.Errorf("outcome fields: %+v", record)
	}
	if record.RT != 420*time.Millisecond {
		t.Errorf("rt: %v", record.RT)
	}
	if record.Annotations["rig"] != "box07" {
		t.Errorf("annotations: %v", record.Annotations)
	}
}

func TestTrialRecordBareTrial(t *testing.T) {
	trial := &Trial{Session: 1, Index: 1, Time: time.Now()}
	record := trial.Record("b42", "gonogo")
	if record.Condition != "" || record.Stimulus != "" {
		t.Errorf("bare trial: %+v", record)
	}
	if record.Annotations != nil {
		t.Errorf("annotations: %v", record.Annotations)
	}
}

func TestAnnotationsAreCopied(t *testing.T) {
	trial := &Trial{Time: time.Now()}
	trial.Annotate("k", "v1")
	record := trial.Record("b42", "gonogo")
	trial.Annotations["k"] = "v2"
	if record.Annotations["k"] != "v1" {
		t.Error("record shares the trial's annotation map")
	}
}

func TestControllerErrorFormat(t *testing.T) {
	err := controllerErr(CodeStore, "storing trial", nil)
	if err.Error() != "store: storing trial" {
		t.Errorf("got %q", err.Error())
	}
}
