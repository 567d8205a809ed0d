package resp_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/eternalApril/lunakv/internal/resp"
)

func TestReadInt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr error
	}{
		{
			name:    "Valid positive",
			input:   ":1000\r\n",
			want:    1000,
			wantErr: nil,
		},
		{
			name:    "Valid positive with +",
			input:   ":+1230\r\n",
			want:    1230,
			wantErr: nil,
		},
		{
			name:    "Valid negative",
			input:   ":-15\r\n",
			want:    -15,
			wantErr: nil,
		},
		{
			name:    "Valid zero",
			input:   ":0\r\n",
			want:    0,
			wantErr: nil,
		},
		{
			name:    "Invalid ending",
			input:   ":1000\n",
			want:    0,
			wantErr: resp.ErrInvalidEnding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := resp.NewDecoder(strings.NewReader(tt.input))

			val, err := r.Read()

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Read() expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Errorf("Read() unexpected error %v", err)
			}

			if val.Type != resp.TypeInteger {
				t.Errorf("Read() type = %v, want %v", val.Type, resp.TypeInteger)
			}

			if val.Integer != tt.want {
				t.Errorf("Read() num = %v, want %v", val.Integer, tt.want)
			}
		})
	}
}

func TestReadBulkString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     string
		wantNull bool
		wantErr  error
	}{
		{"Simple", "$5\r\nhello\r\n", "hello", false, nil},
		{"Empty", "$0\r\n\r\n", "", false, nil},
		{"Binary safe", "$4\r\na\r\nb\r\n", "a\r\nb", false, nil},
		{"Null", "$-1\r\n", "", true, nil},
		{"Negative length", "$-5\r\n", "", false, resp.ErrInvalidLength},
		{"Missing CRLF", "$5\r\nhelloXX", "", false, resp.ErrInvalidEnding},
		{"Truncated", "$10\r\nhello", "", false, io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, err := resp.NewDecoder(strings.NewReader(tt.input)).Read()

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Read() expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Read() unexpected error %v", err)
			}
			if val.Type != resp.TypeBulkString {
				t.Errorf("Read() type = %q, want %q", val.Type, resp.TypeBulkString)
			}
			if val.IsNull != tt.wantNull {
				t.Errorf("Read() IsNull = %v, want %v", val.IsNull, tt.wantNull)
			}
			if string(val.String) != tt.want {
				t.Errorf("Read() = %q, want %q", val.String, tt.want)
			}
		})
	}
}

func TestReadArray(t *testing.T) {
	r := resp.NewDecoder(strings.NewReader("*3\r\n$3\r\nSET\r\n$1\r\nk\r\n:7\r\n*-1\r\n"))

	val, err := r.Read()
	if err != nil {
		t.Fatalf("Read() unexpected error %v", err)
	}
	if val.Type != resp.TypeArray || len(val.Array) != 3 {
		t.Fatalf("Read() = %+v, want array of 3", val)
	}
	if string(val.Array[0].String) != "SET" || string(val.Array[1].String) != "k" {
		t.Errorf("Read() unexpected elements %+v", val.Array)
	}
	if val.Array[2].Integer != 7 {
		t.Errorf("Read() integer element = %d, want 7", val.Array[2].Integer)
	}

	null, err := r.Read()
	if err != nil {
		t.Fatalf("Read() unexpected error %v", err)
	}
	if !null.IsNull {
		t.Errorf("Read() expected null array")
	}

	if _, err := r.Read(); !errors.Is(err, io.EOF) {
		t.Errorf("Read() at end = %v, want io.EOF", err)
	}
}

func TestReadTruncatedArray(t *testing.T) {
	_, err := resp.NewDecoder(strings.NewReader("*2\r\n$3\r\nGET\r\n")).Read()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Read() = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestReadInline(t *testing.T) {
	r := resp.NewDecoder(strings.NewReader("SET  key   value\r\nPING\n"))

	val, err := r.Read()
	if err != nil {
		t.Fatalf("Read() unexpected error %v", err)
	}

	want := []string{"SET", "key", "value"}
	if len(val.Array) != len(want) {
		t.Fatalf("Read() = %d elements, want %d", len(val.Array), len(want))
	}
	for i, w := range want {
		if string(val.Array[i].String) != w {
			t.Errorf("element %d = %q, want %q", i, val.Array[i].String, w)
		}
	}

	val, err = r.Read()
	if err != nil {
		t.Fatalf("Read() unexpected error %v", err)
	}
	if len(val.Array) != 1 || string(val.Array[0].String) != "PING" {
		t.Errorf("Read() = %+v, want [PING]", val)
	}
}

func TestSerializeCommandRoundTrip(t *testing.T) {
	payload, err := resp.SerializeCommand("PEXPIREAT", resp.MakeBulkStrings("k", "1700000000000"))
	if err != nil {
		t.Fatalf("SerializeCommand() error %v", err)
	}

	want := "*3\r\n$9\r\nPEXPIREAT\r\n$1\r\nk\r\n$13\r\n1700000000000\r\n"
	if string(payload) != want {
		t.Fatalf("SerializeCommand() = %q, want %q", payload, want)
	}

	val, err := resp.NewDecoder(strings.NewReader(string(payload))).Read()
	if err != nil {
		t.Fatalf("Read() unexpected error %v", err)
	}
	if len(val.Array) != 3 || string(val.Array[2].String) != "1700000000000" {
		t.Errorf("Read() = %+v", val)
	}
}
