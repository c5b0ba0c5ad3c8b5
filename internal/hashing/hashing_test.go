package hashing

import (
	"testing"
)

func TestDJB2_KnownValues(t *testing.T) {
	tests := []struct {
		key  string
		want uint32
	}{
		{"", 5381},
		{"a", 177670},
		{"doc1", 2090191500},
		{"doc2", 2090191501},
		{"hello", 261238937},
	}

	for _, tt := range tests {
		if got := (DJB2{}).HashKey(tt.key); got != tt.want {
			t.Errorf("DJB2(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}

func TestMix32_KnownValues(t *testing.T) {
	tests := []struct {
		id   uint32
		want uint32
	}{
		{1, 824515495},
		{2, 1722258072},
		{3, 3753300549},
		{100001, 3432152191},
		{200001, 790229933},
	}

	for _, tt := range tests {
		if got := (Mix32{}).HashID(tt.id); got != tt.want {
			t.Errorf("Mix32(%d) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestFNV1a_Deterministic(t *testing.T) {
	h := FNV1a{}
	if h.HashKey("key") != h.HashKey("key") {
		t.Error("FNV1a should be deterministic")
	}
	if h.HashKey("key1") == h.HashKey("key2") {
		t.Error("FNV1a should separate distinct short keys")
	}
}

func TestKeyHasherByName(t *testing.T) {
	tests := []struct {
		name    string
		want    KeyHasher
		wantErr bool
	}{
		{name: "", want: DJB2{}},
		{name: "djb2", want: DJB2{}},
		{name: " FNV1A ", want: FNV1a{}},
		{name: "md5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := KeyHasherByName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("KeyHasherByName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("KeyHasherByName(%q) = %T, want %T", tt.name, got, tt.want)
			}
		})
	}
}

func TestHasherFuncs(t *testing.T) {
	k := KeyHasherFunc(func(string) uint32 { return 7 })
	if k.HashKey("x") != 7 {
		t.Error("KeyHasherFunc should delegate")
	}
	i := IDHasherFunc(func(id uint32) uint32 { return id * 2 })
	if i.HashID(21) != 42 {
		t.Error("IDHasherFunc should delegate")
	}
}
