//go:build !ocr

package ocr

import (
	"errors"
	"testing"
)

func TestStubNewIgnoresLanguageAndFails(t *testing.T) {
	for _, lang := range []string{"", "eng", "eng+fra"} {
		client, err := New(lang)
		if !errors.Is(err, ErrOCRNotEnabled) {
			t.Errorf("New(%q) error = %v, want ErrOCRNotEnabled", lang, err)
		}
		if client != nil {
			t.Errorf("New(%q) returned a non-nil client, want nil", lang)
		}
	}
}

func TestStubMethodsAllFailClosed(t *testing.T) {
	c := &Client{}
	if _, err := c.RecognizeImage(nil); !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("RecognizeImage error = %v, want ErrOCRNotEnabled", err)
	}
	if err := c.SetLanguage("eng"); !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("SetLanguage error = %v, want ErrOCRNotEnabled", err)
	}
	if err := c.SetPageSegMode(PSM_AUTO); !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("SetPageSegMode error = %v, want ErrOCRNotEnabled", err)
	}
	if err := c.HealthCheck(); !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("HealthCheck error = %v, want ErrOCRNotEnabled", err)
	}
}

func TestStubCloseToleratesNilClient(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on a nil *Client returned %v, want nil", err)
	}
}
