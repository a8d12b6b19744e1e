package model

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestDecodePayload_KnownTypes(t *testing.T) {
	for _, tc := range []struct {
		typ  string
		raw  string
		want string
	}{
		{EventSoundboardPlay, `{"session_id":42,"track_id":7,"track_name":"Thunder","volume":0.5}`, "*model.SoundboardPlay"},
		{EventMapDrawingsCleared, `{"map_id":3,"cleared_by_user_id":1}`, "*model.MapDrawingsCleared"},
		{EventHPChange, `{"character_id":10,"old_hp":50,"new_hp":45}`, "*model.HPChange"},
	} {
		p := DecodePayload(tc.typ, json.RawMessage(tc.raw))
		if p.EventType() != tc.typ {
			t.Errorf("DecodePayload(%q).EventType() = %q", tc.typ, p.EventType())
		}
		if _, unknown := p.(*Unknown); unknown {
			t.Errorf("DecodePayload(%q) fell back to Unknown", tc.typ)
		}
	}

	p := DecodePayload(EventSoundboardPlay, json.RawMessage(`{"session_id":42,"track_id":7,"volume":0.5}`))
	sp, ok := p.(*SoundboardPlay)
	if !ok {
		t.Fatalf("expected *SoundboardPlay, got %T", p)
	}
	if sp.TrackID != 7 || sp.Volume != 0.5 {
		t.Errorf("unexpected payload: %+v", sp)
	}
}

func TestDecodePayload_UnknownFallback(t *testing.T) {
	raw := json.RawMessage(`{"anything":true}`)
	p := DecodePayload("weather_changed", raw)
	u, ok := p.(*Unknown)
	if !ok {
		t.Fatalf("expected Unknown, got %T", p)
	}
	if u.Type != "weather_changed" || string(u.Raw) != string(raw) {
		t.Errorf("unexpected unknown payload: %+v", u)
	}

	// Known type with mismatched shape also degrades to Unknown.
	p = DecodePayload(EventHPChange, json.RawMessage(`{"character_id":"ten"}`))
	if _, ok := p.(*Unknown); !ok {
		t.Errorf("expected Unknown for malformed hp_change, got %T", p)
	}
}

func TestDecodePayload_AlwaysPointer(t *testing.T) {
	types := []string{"weather_changed"}
	for typ := range payloadFactories {
		types = append(types, typ)
	}
	for _, typ := range types {
		for _, raw := range []string{`{}`, `"not an object"`} {
			p := DecodePayload(typ, json.RawMessage(raw))
			if k := reflect.TypeOf(p).Kind(); k != reflect.Pointer {
				t.Errorf("DecodePayload(%q, %s) returned %T, want a pointer", typ, raw, p)
			}
		}
	}
}

func TestEncodePayload(t *testing.T) {
	data, err := EncodePayload(MapDrawingsCleared{MapID: 3, ClearedByUserID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"map_id":3,"cleared_by_user_id":1}` {
		t.Errorf("got %s", data)
	}

	raw := json.RawMessage(`{"weather":"storm"}`)
	data, err = EncodePayload(Unknown{Type: "weather_changed", Raw: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != string(raw) {
		t.Errorf("Unknown should round-trip verbatim, got %s", data)
	}

	data, err = EncodePayload(DecodePayload("weather_changed", raw))
	if err != nil || string(data) != string(raw) {
		t.Errorf("decoded *Unknown should round-trip verbatim, got %s (%v)", data, err)
	}

	data, _ = EncodePayload(Unknown{Type: "empty"})
	if string(data) != `{}` {
		t.Errorf("empty Unknown = %s, want {}", data)
	}
}

func TestEvent_Payload(t *testing.T) {
	e := &Event{Type: EventXPAwarded, Data: json.RawMessage(`{"character_id":1,"xp_amount":250}`)}
	xp, ok := e.Payload().(*XPAwarded)
	if !ok {
		t.Fatalf("expected *XPAwarded, got %T", e.Payload())
	}
	if xp.XPAmount != 250 {
		t.Errorf("xp_amount = %d, want 250", xp.XPAmount)
	}
}

func TestLastEventID(t *testing.T) {
	if got := LastEventID(nil, 9); got != 9 {
		t.Errorf("LastEventID(nil, 9) = %d, want 9", got)
	}
	evts := []*Event{{EventID: 10}, {EventID: 11}, {EventID: 14}}
	if got := LastEventID(evts, 9); got != 14 {
		t.Errorf("LastEventID = %d, want 14", got)
	}
}

func TestAuthSession_Expired(t *testing.T) {
	now := time.Now()
	s := &AuthSession{ExpiresAt: now.Add(time.Minute)}
	if s.Expired(now) {
		t.Error("session expiring in a minute reported expired")
	}
	if !s.Expired(now.Add(time.Minute)) {
		t.Error("session at its expiry instant should be expired")
	}
}

func TestGameSession_IsDM(t *testing.T) {
	s := &GameSession{SessionID: 42, DMUserID: 7}
	if !s.IsDM(7) {
		t.Error("IsDM(7) = false, want true")
	}
	if s.IsDM(8) {
		t.Error("IsDM(8) = true, want false")
	}
}

func TestNormalizeDrawing(t *testing.T) {
	for _, tc := range []struct {
		in        Drawing
		wantType  string
		wantColor string
		wantBrush int
	}{
		{Drawing{}, DrawingStroke, "#000000", 3},
		{Drawing{DrawingType: "erase", Color: " #ff00AA ", BrushSize: 80}, DrawingErase, "#ff00AA", 50},
		{Drawing{DrawingType: "bogus", BrushSize: -4}, DrawingStroke, "#000000", 1},
	} {
		d := tc.in
		NormalizeDrawing(&d)
		if d.DrawingType != tc.wantType || d.Color != tc.wantColor || d.BrushSize != tc.wantBrush {
			t.Errorf("NormalizeDrawing(%+v) = {%s %s %d}, want {%s %s %d}",
				tc.in, d.DrawingType, d.Color, d.BrushSize, tc.wantType, tc.wantColor, tc.wantBrush)
		}
	}
}

func TestValidateDrawing(t *testing.T) {
	valid := func() *Drawing {
		return &Drawing{MapID: 3, DrawingType: DrawingStroke, Color: "#112233", BrushSize: 3,
			PathData: json.RawMessage(`[{"x":1,"y":2}]`)}
	}
	path := []Point{{X: 1, Y: 2}}

	if err := ValidateDrawing(valid(), path); err != nil {
		t.Fatalf("valid drawing rejected: %v", err)
	}

	d := valid()
	d.Color = "red"
	assertFieldError(t, ValidateDrawing(d, path), "color")

	assertFieldError(t, ValidateDrawing(valid(), nil), "path_data")

	d = valid()
	d.MapID = 0
	assertFieldError(t, ValidateDrawing(d, path), "map_id")

	d = valid()
	d.PathData = json.RawMessage(`[` + strings.Repeat(`{"x":1,"y":2},`, 5000) + `{"x":1,"y":2}]`)
	assertFieldError(t, ValidateDrawing(d, path), "path_data")
}

func TestValidateDrawing_NonFiniteCoordinates(t *testing.T) {
	for _, p := range []Point{
		{X: math.NaN(), Y: 1},
		{X: 1, Y: math.Inf(1)},
		{X: math.Inf(-1), Y: 0},
	} {
		d := &Drawing{MapID: 3, DrawingType: DrawingStroke, Color: "#112233", BrushSize: 3,
			PathData: json.RawMessage(`[{"x":0,"y":0}]`)}
		err := ValidateDrawing(d, []Point{{X: 0, Y: 0}, p})
		assertFieldError(t, err, "path_data")
		if !strings.Contains(err.Error(), "index 1") {
			t.Errorf("error should name the bad point: %v", err)
		}
	}
}

func assertFieldError(t *testing.T, err error, field string) {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if _, ok := ve.Fields()[field]; !ok {
		t.Errorf("expected error on %q, got %v", field, ve.Fields())
	}
}
