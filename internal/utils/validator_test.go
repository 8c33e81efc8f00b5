package utils

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/RecoveryAshes/coursecrawl/internal/models"
)

func TestHeaderValidator_ValidateHeader(t *testing.T) {
	validator := NewHeaderValidator()

	tests := []struct {
		name        string
		headerName  string
		headerValue string
		expectError bool
	}{
		{"合法头部", "Accept-Language", "en-US,en;q=0.9", false},
		{"合法空值", "X-Empty", "", false},
		{"合法长值", "X-Long", strings.Repeat(" ", 8000), false},
		{"空名称", "", "x", true},
		{"名称含空格", "User Agent", "x", true},
		{"名称含下划线", "User_Agent", "x", true},
		{"禁止头部-Host", "Host", "example.com", true},
		{"禁止头部-小写", "content-length", "10", true},
		{"最大长度值", "X-Max", strings.Repeat("a", MaxHeaderValueLength), false},
		{"单字符名称", "X", "1", false},
		{"值超长", "X-TooLong", strings.Repeat("a", MaxHeaderValueLength+1), true},
		{"值含控制字符", "X-Bad", "value\x00null", true},
		{"值含非ASCII", "X-Bad", "中文", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateHeader(tt.headerName, tt.headerValue)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际错误=%v", tt.expectError, err)
			}
			if err != nil {
				var ve *models.ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("错误类型应为ValidationError: %T", err)
				}
			}
		})
	}
}

func TestHeaderValidator_Validate(t *testing.T) {
	validator := NewHeaderValidator()

	good := http.Header{}
	good.Set("User-Agent", "Mozilla/5.0")
	good.Set("Accept-Language", "en-US")
	if err := validator.Validate(good); err != nil {
		t.Errorf("合法头部集合不应报错: %v", err)
	}

	bad := good.Clone()
	bad.Set("Connection", "close")
	err := validator.Validate(bad)
	if err == nil {
		t.Fatal("包含禁止头部应报错")
	}
	var ve *models.ValidationError
	if !errors.As(err, &ve) || ve.HeaderName != "Connection" {
		t.Errorf("应指出Connection头部: %v", err)
	}
}

func TestHeaderValidator_ValidateMap(t *testing.T) {
	validator := NewHeaderValidator()

	if err := validator.ValidateMap(map[string]string{"X-Trace": "1"}); err != nil {
		t.Errorf("合法映射不应报错: %v", err)
	}
	if err := validator.ValidateMap(map[string]string{"  ": "1"}); err == nil {
		t.Error("空白名称应报错")
	}
}
