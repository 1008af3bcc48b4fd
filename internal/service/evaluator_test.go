package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadforge/automation/internal/domain/model"
)

func makeAutomation(t *testing.T, triggerType model.TriggerType, cfg model.TriggerConfig) model.Automation {
	t.Helper()
	raw, err := model.EncodeTriggerConfig(cfg)
	require.NoError(t, err)
	return model.Automation{
		ID:               "auto-1",
		Name:             "test automation",
		Channel:          model.ChannelEmail,
		SubjectTemplate:  "subject",
		BodyTemplate:     "body",
		Enabled:          true,
		TriggerType:      triggerType,
		RawTriggerConfig: raw,
	}
}

func TestEvaluatorFormSubmit(t *testing.T) {
	e := NewEvaluator()

	tests := []struct {
		name  string
		cfg   model.FormSubmitConfig
		event model.BehavioralEvent
		want  bool
	}{
		{
			name:  "matching form id",
			cfg:   model.FormSubmitConfig{FormID: "signup"},
			event: model.BehavioralEvent{VisitorID: "v1", Email: "a@b.c", ConvertedTo: "signup"},
			want:  true,
		},
		{
			name:  "different form id",
			cfg:   model.FormSubmitConfig{FormID: "signup"},
			event: model.BehavioralEvent{VisitorID: "v1", Email: "a@b.c", ConvertedTo: "newsletter"},
			want:  false,
		},
		{
			name:  "empty form id matches any form",
			cfg:   model.FormSubmitConfig{},
			event: model.BehavioralEvent{VisitorID: "v1", Email: "a@b.c", ConvertedTo: "newsletter"},
			want:  true,
		},
		{
			name:  "no conversion at all",
			cfg:   model.FormSubmitConfig{},
			event: model.BehavioralEvent{VisitorID: "v1", Email: "a@b.c"},
			want:  false,
		},
		{
			name:  "page restriction mismatch",
			cfg:   model.FormSubmitConfig{FormID: "signup", PageSlug: "landing"},
			event: model.BehavioralEvent{VisitorID: "v1", Email: "a@b.c", ConvertedTo: "signup", PageSlug: "pricing"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			automation := makeAutomation(t, model.TriggerFormSubmit, tt.cfg)
			got, err := e.Matches(&automation, &tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluatorPageExit(t *testing.T) {
	e := NewEvaluator()
	automation := makeAutomation(t, model.TriggerPageExit, model.PageExitConfig{PageSlug: "pricing"})

	match, err := e.Matches(&automation, &model.BehavioralEvent{
		VisitorID: "v1", Email: "a@b.c", PageSlug: "pricing", ExitIntent: true,
	})
	require.NoError(t, err)
	assert.True(t, match)

	noExit, err := e.Matches(&automation, &model.BehavioralEvent{
		VisitorID: "v1", Email: "a@b.c", PageSlug: "pricing",
	})
	require.NoError(t, err)
	assert.False(t, noExit)
}

func TestEvaluatorTimeOnPage(t *testing.T) {
	e := NewEvaluator()
	automation := makeAutomation(t, model.TriggerTimeOnPage, model.TimeOnPageConfig{MinSeconds: 30})

	long, err := e.Matches(&automation, &model.BehavioralEvent{
		VisitorID: "v1", Email: "a@b.c", TimeOnPageSeconds: 45,
	})
	require.NoError(t, err)
	assert.True(t, long)

	short, err := e.Matches(&automation, &model.BehavioralEvent{
		VisitorID: "v1", Email: "a@b.c", TimeOnPageSeconds: 10,
	})
	require.NoError(t, err)
	assert.False(t, short)
}

func TestEvaluatorTimeOnPageZeroThresholdNeverFires(t *testing.T) {
	e := NewEvaluator()
	automation := makeAutomation(t, model.TriggerTimeOnPage, model.TimeOnPageConfig{})

	match, err := e.Matches(&automation, &model.BehavioralEvent{
		VisitorID: "v1", Email: "a@b.c", TimeOnPageSeconds: 9999,
	})
	require.NoError(t, err)
	assert.False(t, match, "a dwell trigger without a threshold would fire on every event")
}

func TestEvaluatorExitWithoutConversion(t *testing.T) {
	e := NewEvaluator()
	automation := makeAutomation(t, model.TriggerExitWithoutConversion,
		model.ExitWithoutConversionConfig{ConversionTarget: "checkout"})

	abandoned, err := e.Matches(&automation, &model.BehavioralEvent{
		VisitorID: "v1", Email: "a@b.c", ExitIntent: true,
	})
	require.NoError(t, err)
	assert.True(t, abandoned)

	converted, err := e.Matches(&automation, &model.BehavioralEvent{
		VisitorID: "v1", Email: "a@b.c", ExitIntent: true, ConvertedTo: "checkout",
	})
	require.NoError(t, err)
	assert.False(t, converted)

	otherConversion, err := e.Matches(&automation, &model.BehavioralEvent{
		VisitorID: "v1", Email: "a@b.c", ExitIntent: true, ConvertedTo: "newsletter",
	})
	require.NoError(t, err)
	assert.True(t, otherConversion, "an unrelated conversion does not satisfy the target")

	stillBrowsing, err := e.Matches(&automation, &model.BehavioralEvent{
		VisitorID: "v1", Email: "a@b.c", TimeOnPageSeconds: 120,
	})
	require.NoError(t, err)
	assert.False(t, stillBrowsing, "no leave signal means no abandonment yet")
}

func TestEvaluatorCheckoutAbandonedNeverMatchesEvents(t *testing.T) {
	e := NewEvaluator()
	automation := makeAutomation(t, model.TriggerCheckoutAbandoned, model.CheckoutAbandonedConfig{})

	match, err := e.Matches(&automation, &model.BehavioralEvent{
		VisitorID: "v1", Email: "a@b.c", ExitIntent: true, TimeOnPageSeconds: 9999,
	})
	require.NoError(t, err)
	assert.False(t, match)
}

func TestEvaluateSkipsBrokenConfigs(t *testing.T) {
	e := NewEvaluator()
	good := makeAutomation(t, model.TriggerPageExit, model.PageExitConfig{})
	broken := good
	broken.ID = "auto-broken"
	broken.RawTriggerConfig = json.RawMessage(`{not json`)

	matched, errs := e.Evaluate(
		[]model.Automation{broken, good},
		&model.BehavioralEvent{VisitorID: "v1", Email: "a@b.c", ExitIntent: true},
	)
	require.Len(t, errs, 1)
	require.Len(t, matched, 1)
	assert.Equal(t, good.ID, matched[0].ID)
}
