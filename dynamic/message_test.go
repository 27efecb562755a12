package dynamic

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

func TestMessage_SetRejectsWrongTypes(t *testing.T) {
	reg := loadRegistry(t)
	order := newMessage(t, reg, "shop.v1.Order")
	item := newMessage(t, reg, "shop.v1.Item")

	tests := []struct {
		name   string
		number int32
		value  any
		want   error
		path   []string
	}{
		{"unknown_field", 99, "x", ErrUnknownField, nil},
		{"string_as_int", 1, 5, ErrTypeMismatch, []string{"id"}},
		{"untyped_int_for_int32", 4, []any{1}, ErrTypeMismatch, []string{"codes", "0"}},
		{"scalar_for_repeated", 4, int32(1), ErrTypeMismatch, []string{"codes"}},
		{"wrong_message_type", 9, item, ErrTypeMismatch, []string{"created"}},
		{"wrong_map_key", 3, []MapEntry{{Key: int32(1), Value: int64(1)}}, ErrTypeMismatch, []string{"totals", "key"}},
		{"go_map_for_map_field", 3, map[string]int64{"usd": 1}, ErrTypeMismatch, []string{"totals"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := order.Set(tt.number, tt.value)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			var fe *wire.FieldError
			if tt.path == nil {
				if errors.As(err, &fe) {
					t.Errorf("unexpected field path %v", fe.FieldPath)
				}
				return
			}
			if !errors.As(err, &fe) {
				t.Fatalf("got %T, want *wire.FieldError", err)
			}
			if diff := cmp.Diff(tt.path, fe.FieldPath); diff != "" {
				t.Errorf("path mismatch (-want +got):\n%s", diff)
			}
		})
	}
	if order.Len() != 0 {
		t.Errorf("failed Set calls stored %d fields", order.Len())
	}
}

func TestMessage_Oneof(t *testing.T) {
	reg := loadRegistry(t)
	order := newMessage(t, reg, "shop.v1.Order")

	mustSet(t, order, 6, "visa")
	mustSet(t, order, 7, int64(0))
	if order.Has(6) {
		t.Errorf("setting voucher should clear card")
	}
	if !order.Has(7) {
		t.Errorf("oneof members keep presence for zero values")
	}
	if err := order.SetByName("card", "amex"); err != nil {
		t.Fatal(err)
	}
	if order.Has(7) || order.Get(6) != "amex" {
		t.Errorf("oneof state = %v", order.ToMap())
	}
	if err := order.Set(6, nil); err != nil || order.Has(6) {
		t.Errorf("Set(nil) should clear the field, err=%v", err)
	}
}

func TestMessage_EnumFields(t *testing.T) {
	reg := loadRegistry(t)
	item := newMessage(t, reg, "shop.v1.Item")

	if got := item.Get(3); got != (EnumValue{Number: 0, Name: "STATUS_UNSPECIFIED"}) {
		t.Errorf("default status = %#v", got)
	}
	mustSet(t, item, 3, int32(2))
	if got := item.GetByName("status"); got != (EnumValue{Number: 2, Name: "STATUS_BLOCKED"}) {
		t.Errorf("status = %#v", got)
	}
	mustSet(t, item, 3, EnumValue{Number: 42})
	if got := item.Get(3).(EnumValue); got.String() != "42" || got.Value() != 42 {
		t.Errorf("unrecognized status = %v", got)
	}
}

func TestMessage_CopyIsDeep(t *testing.T) {
	reg := loadRegistry(t)
	order := newMessage(t, reg, "shop.v1.Order")
	buildOrder(t, reg, order)
	before := wire.Marshal(order)

	cp := order.Copy()
	items := cp.Get(2).([]any)
	mustSet(t, items[0].(*Message), 1, "changed")
	mustSet(t, cp, 4, []any{int32(9)})

	if got := wire.Marshal(order); !cmp.Equal(got, before) {
		t.Errorf("mutating the copy changed the original")
	}
	if got := wire.Marshal(cp); cmp.Equal(got, before) {
		t.Errorf("copy did not change")
	}
}

func TestMessage_SizeFollowsMutation(t *testing.T) {
	reg := loadRegistry(t)
	order := newMessage(t, reg, "shop.v1.Order")
	item := newMessage(t, reg, "shop.v1.Item")
	mustSet(t, item, 1, "a")
	mustSet(t, order, 2, []any{item})
	first := len(wire.Marshal(order))

	// mutating a nested message after it was attached is picked up by the next encode
	mustSet(t, item, 1, "abcdef")
	second := wire.Marshal(order)
	if len(second) != first+5 {
		t.Errorf("size went from %d to %d, want +5", first, len(second))
	}
	decoded, err := Unmarshal(second, order.Descriptor(), reg)
	if err != nil {
		t.Fatal(err)
	}
	if got := decoded.Get(2).([]any)[0].(*Message).Get(1); got != "abcdef" {
		t.Errorf("nested sku = %v", got)
	}
}

func TestMessage_ConcurrentMarshal(t *testing.T) {
	reg := loadRegistry(t)
	order := newMessage(t, reg, "shop.v1.Order")
	buildOrder(t, reg, order)
	want := wire.Marshal(order)

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = wire.Marshal(order)
		}(i)
	}
	wg.Wait()
	for i, got := range results {
		if !cmp.Equal(got, want) {
			t.Errorf("goroutine %d encoded %x, want %x", i, got, want)
		}
	}
}

func TestMessage_ScalarOnlyWithoutResolver(t *testing.T) {
	desc := &schema.Message{
		Name:     "Point",
		FullName: "geo.Point",
		Syntax:   schema.SyntaxProto3,
		Fields: []*schema.Field{
			{Name: "x", Number: 1, Label: schema.LabelOptional, OneofIndex: -1,
				Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeSint32}},
			{Name: "y", Number: 2, Label: schema.LabelOptional, OneofIndex: -1,
				Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeSint32}},
		},
	}
	p := New(desc, nil)
	mustSet(t, p, 1, int32(-1))
	mustSet(t, p, 2, int32(1))

	data := wire.Marshal(p)
	if want := []byte{0x08, 0x01, 0x10, 0x02}; !cmp.Equal(data, want) {
		t.Fatalf("encoded %x, want %x", data, want)
	}
	decoded, err := wire.Unmarshal(data, Deserializer(desc, nil))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"x": int32(-1), "y": int32(1)}, decoded.ToMap()); diff != "" {
		t.Errorf("decoded mismatch (-want +got):\n%s", diff)
	}
}
