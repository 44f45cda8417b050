package cmd

import (
	"strings"
	"testing"
)

func TestBackfillModeSet(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    backfillMode
		wantErr bool
	}{
		{name: "auto", value: "auto", want: backfillAuto},
		{name: "empty is auto", value: "", want: backfillAuto},
		{name: "on", value: "ON", want: backfillOn},
		{name: "off", value: " off ", want: backfillOff},
		{name: "yes alias", value: "yes", want: backfillOn},
		{name: "false alias", value: "false", want: backfillOff},
		{name: "invalid", value: "maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode := backfillAuto
			err := mode.Set(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mode != tt.want {
				t.Fatalf("unexpected mode: expected %q, got %q", tt.want, mode)
			}
		})
	}
}

func TestBackfillModeEnabled(t *testing.T) {
	if !backfillAuto.enabled(true) || backfillAuto.enabled(false) {
		t.Fatalf("expected auto to follow the config default")
	}
	if !backfillOn.enabled(false) {
		t.Fatalf("expected on to override a disabled config default")
	}
	if backfillOff.enabled(true) {
		t.Fatalf("expected off to override an enabled config default")
	}
}

func TestImportBackfillFlag(t *testing.T) {
	flag := importCmd.Flags().Lookup("backfill")
	if flag == nil {
		t.Fatalf("expected --backfill flag")
	}
	if flag.DefValue != "auto" {
		t.Fatalf("expected default auto, got %q", flag.DefValue)
	}
	if !strings.Contains(flag.Usage, "import.backfill_after_import") {
		t.Fatalf("expected usage to name the config key, got %q", flag.Usage)
	}
}

func TestCheckoutHelpDescribesRounding(t *testing.T) {
	if strings.Contains(checkoutCmd.Long, "quarter hour") {
		t.Fatalf("checkout help must not promise quarter-hour rounding: %q", checkoutCmd.Long)
	}
	if !strings.Contains(checkoutCmd.Long, "at least 0.25 hours") || !strings.Contains(checkoutCmd.Long, "two decimals") {
		t.Fatalf("checkout help should describe the minimum and two-decimal rounding: %q", checkoutCmd.Long)
	}
}
