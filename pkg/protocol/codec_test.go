package protocol

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestWorldSnapshotRoundTrip(t *testing.T) {
	snapshot := &WorldSnapshot{
		Tick:             42,
		LastProcessedSeq: 7,
		Entities: []EntityState{
			{EntityID: 1, X: 5.5, Y: -3.25, VelX: 1, VelY: 0, Rotation: 0.5, Health: 80, MaxHealth: 100},
			{EntityID: 2, X: 0, Y: 0, Health: 100, MaxHealth: 100},
		},
		Events: []GameEvent{
			{Kind: 3, SourceID: 1, TargetID: 2, Value: 12.5},
		},
	}

	data := MarshalPacket(NewWorldSnapshotPacket(snapshot))
	pkt, err := UnmarshalPacket(data)
	if err != nil {
		t.Fatalf("UnmarshalPacket: %v", err)
	}
	if pkt.Type != MessageTypeWorldSnapshot {
		t.Fatalf("type = %d, want %d", pkt.Type, MessageTypeWorldSnapshot)
	}

	got, err := ParseWorldSnapshot(pkt)
	if err != nil {
		t.Fatalf("ParseWorldSnapshot: %v", err)
	}
	if got.Tick != 42 || got.LastProcessedSeq != 7 {
		t.Fatalf("header = (%d, %d), want (42, 7)", got.Tick, got.LastProcessedSeq)
	}
	if len(got.Entities) != 2 || len(got.Events) != 1 {
		t.Fatalf("counts = (%d, %d), want (2, 1)", len(got.Entities), len(got.Events))
	}
	if got.Entities[0] != snapshot.Entities[0] {
		t.Fatalf("entity[0] = %+v, want %+v", got.Entities[0], snapshot.Entities[0])
	}
	if got.Events[0] != snapshot.Events[0] {
		t.Fatalf("event[0] = %+v, want %+v", got.Events[0], snapshot.Events[0])
	}
}

func TestPlayerInputRoundTrip(t *testing.T) {
	input := &PlayerInput{
		TickHint: 100,
		TimeHint: 1700000000123,
		Flags:    0b1001,
		AimX:     0.5,
		AimY:     -0.5,
		Sequence: 33,
	}

	pkt, err := UnmarshalPacket(MarshalPacket(NewPlayerInputPacket(input)))
	if err != nil {
		t.Fatalf("UnmarshalPacket: %v", err)
	}
	got, err := ParsePlayerInput(pkt)
	if err != nil {
		t.Fatalf("ParsePlayerInput: %v", err)
	}
	if *got != *input {
		t.Fatalf("round trip = %+v, want %+v", got, input)
	}
}

// TestUnmarshalTruncated 截断的消息体必须报错而不是崩溃
func TestUnmarshalTruncated(t *testing.T) {
	data := MarshalPacket(NewPlayerInputPacket(&PlayerInput{Sequence: 1}))
	for cut := 1; cut < len(data); cut++ {
		if _, err := UnmarshalPacket(data[:cut]); err != nil {
			continue
		}
		// 有些截断位置恰好落在字段边界上，封包本身仍可解析，
		// 此时消息体的解析也不应崩溃
		pkt, _ := UnmarshalPacket(data[:cut])
		if pkt != nil && pkt.Type == MessageTypePlayerInput {
			_, _ = ParsePlayerInput(pkt)
		}
	}
}

// TestUnknownFieldSkipped 未知字段必须被跳过（前向兼容）
func TestUnknownFieldSkipped(t *testing.T) {
	payload := appendPing(nil, &Ping{ClientTime: 99})
	payload = protowire.AppendTag(payload, 15, protowire.BytesType)
	payload = protowire.AppendBytes(payload, []byte("future"))

	got, err := unmarshalPing(payload)
	if err != nil {
		t.Fatalf("unmarshalPing: %v", err)
	}
	if got.ClientTime != 99 {
		t.Fatalf("ClientTime = %d, want 99", got.ClientTime)
	}
}

func TestParseTypeMismatch(t *testing.T) {
	pkt := NewPingPacket(1)
	if _, err := ParseWorldSnapshot(pkt); err == nil {
		t.Fatal("expected error parsing ping as snapshot")
	}
}
