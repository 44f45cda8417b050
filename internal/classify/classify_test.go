package classify

import (
	"testing"

	"clubhours/worklog"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want worklog.Kind
	}{
		{raw: "Standard", want: worklog.KindStandard},
		{raw: "Maintenance", want: worklog.KindMaintenance},
		{raw: "Setup", want: worklog.KindSetup},
		{raw: "MAINT", want: worklog.KindMaintenance},
		{raw: "SETUP", want: worklog.KindSetup},
		{raw: "Cleaning / Maintenance (2x)", want: worklog.KindMaintenance},
		{raw: "cleaning duty", want: worklog.KindMaintenance},
		{raw: "grounds maint", want: worklog.KindMaintenance},
		{raw: "Trial Setup (2x)", want: worklog.KindSetup},
		{raw: "TRIAL helper", want: worklog.KindSetup},
		{raw: "Standard / Regular (1x)", want: worklog.KindStandard},
		{raw: "Regular", want: worklog.KindStandard},
		{raw: "", want: worklog.KindStandard},
		{raw: "   ", want: worklog.KindStandard},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Fatalf("Normalize(%q): expected %q, got %q", tt.raw, tt.want, got)
			}
		})
	}
}

func TestNormalize_MultiplierIsOneOrTwo(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"Standard", "cleaning", "trial", "whatever", "MAINT"} {
		multiplier := Normalize(raw).Multiplier()
		if multiplier != 1 && multiplier != 2 {
			t.Fatalf("unexpected multiplier %v for %q", multiplier, raw)
		}
	}
}

func TestNeedsRewrite(t *testing.T) {
	t.Parallel()

	canonical, rewrite := NeedsRewrite(worklog.Kind("cleaning duty"))
	if !rewrite || canonical != worklog.KindMaintenance {
		t.Fatalf("expected rewrite to maintenance, got %q rewrite=%v", canonical, rewrite)
	}

	if _, rewrite := NeedsRewrite(worklog.KindStandard); rewrite {
		t.Fatalf("expected canonical label to be left alone")
	}
}
