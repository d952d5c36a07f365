package wire

import (
	"strconv"
	"strings"
	"testing"
)

func TestEncodeEmpty(t *testing.T) {
	if got := Encode(nil); got != nil {
		t.Fatalf("Encode(nil) = %v, want nil", got)
	}
	if got := Encode([]byte{}); got != nil {
		t.Fatalf("Encode([]byte{}) = %v, want nil", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []string{
		`{"jsonrpc":"2.0","id":1,"method":"ping","params":{}}`,
		`{}`,
		`{"a":"café"}`,
	}
	for _, body := range cases {
		framed := Encode([]byte(body))
		contentLen, headerLen, res := TryParseHeader(framed, len(framed))
		if res != HeaderOK {
			t.Fatalf("TryParseHeader result = %v, want HeaderOK", res)
		}
		if !IsComplete(len(framed), contentLen, headerLen) {
			t.Fatalf("IsComplete = false for fully framed input")
		}
		got, err := ExtractBody(framed, contentLen, headerLen)
		if err != nil {
			t.Fatalf("ExtractBody: %v", err)
		}
		if string(got) != body {
			t.Fatalf("round trip mismatch: got %q, want %q", got, body)
		}
	}
}

func TestTryParseHeaderNeedMore(t *testing.T) {
	partial := []byte("Content-Length: 10\r\n\r")
	_, _, res := TryParseHeader(partial, len(partial))
	if res != HeaderNeedMore {
		t.Fatalf("result = %v, want HeaderNeedMore", res)
	}
}

func TestTryParseHeaderCaseInsensitiveAndWhitespace(t *testing.T) {
	buf := []byte("content-length:   5  \r\n\r\nhello")
	contentLen, headerLen, res := TryParseHeader(buf, len(buf))
	if res != HeaderOK {
		t.Fatalf("result = %v, want HeaderOK", res)
	}
	if contentLen != 5 {
		t.Fatalf("contentLen = %d, want 5", contentLen)
	}
	if headerLen != strings.Index(string(buf), "\r\n\r\n")+4 {
		t.Fatalf("unexpected headerLen %d", headerLen)
	}
}

func TestTryParseHeaderFailCases(t *testing.T) {
	fails := []string{
		"Content-Length: \r\n\r\n",
		"Content-Length: abc\r\n\r\n",
		"Content-Length: -1\r\n\r\n",
	}
	for _, f := range fails {
		_, _, res := TryParseHeader([]byte(f), len(f))
		if res != HeaderFail {
			t.Fatalf("input %q: result = %v, want HeaderFail", f, res)
		}
	}
}

func TestTryParseHeaderOversizeRejectedBeforeBodyDecode(t *testing.T) {
	oversized := MaxMessage + 1
	header := "Content-Length: " + strconv.Itoa(oversized) + "\r\n\r\n"
	_, _, res := TryParseHeader([]byte(header), len(header))
	if res != HeaderFail {
		t.Fatalf("result = %v, want HeaderFail for length %d > MaxMessage", res, oversized)
	}
}

func TestContentLengthZero(t *testing.T) {
	buf := []byte("Content-Length: 0\r\n\r\n")
	contentLen, headerLen, res := TryParseHeader(buf, len(buf))
	if res != HeaderOK || contentLen != 0 {
		t.Fatalf("expected OK/0, got %v/%d", res, contentLen)
	}
	body, err := ExtractBody(buf, contentLen, headerLen)
	if err != nil || len(body) != 0 {
		t.Fatalf("expected empty body, got %q err=%v", body, err)
	}
}

func TestExtractBodyInvalidUTF8(t *testing.T) {
	buf := append([]byte("Content-Length: 3\r\n\r\n"), 0xff, 0xfe, 0xfd)
	contentLen, headerLen, res := TryParseHeader(buf, len(buf))
	if res != HeaderOK {
		t.Fatalf("result = %v", res)
	}
	if _, err := ExtractBody(buf, contentLen, headerLen); err == nil {
		t.Fatalf("expected invalid utf-8 error")
	}
}
