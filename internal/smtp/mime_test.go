package smtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmail(t *testing.T) {
	t.Run("解析纯文本邮件", func(t *testing.T) {
		raw := []byte("From: Sender <sender@example.com>\r\n" +
			"To: alice@vmail.dev\r\n" +
			"Subject: hello\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n" +
			"\r\n" +
			"plain body\r\n")

		parsed, err := ParseEmail(raw)
		require.NoError(t, err)
		assert.Equal(t, "hello", parsed.Subject)
		assert.Equal(t, "Sender <sender@example.com>", parsed.From)
		assert.Contains(t, parsed.Text, "plain body")
		assert.Empty(t, parsed.HTML)
	})

	t.Run("解析无Content-Type的邮件", func(t *testing.T) {
		raw := []byte("From: sender@example.com\r\n" +
			"Subject: no content type\r\n" +
			"\r\n" +
			"raw body\r\n")

		parsed, err := ParseEmail(raw)
		require.NoError(t, err)
		assert.Contains(t, parsed.Text, "raw body")
	})

	t.Run("解析multipart邮件", func(t *testing.T) {
		raw := []byte("From: sender@example.com\r\n" +
			"Subject: multipart\r\n" +
			"Content-Type: multipart/alternative; boundary=\"BOUNDARY\"\r\n" +
			"\r\n" +
			"--BOUNDARY\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n" +
			"\r\n" +
			"plain part\r\n" +
			"--BOUNDARY\r\n" +
			"Content-Type: text/html; charset=utf-8\r\n" +
			"\r\n" +
			"<p>html part</p>\r\n" +
			"--BOUNDARY--\r\n")

		parsed, err := ParseEmail(raw)
		require.NoError(t, err)
		assert.Contains(t, parsed.Text, "plain part")
		assert.Contains(t, parsed.HTML, "<p>html part</p>")
	})

	t.Run("解析base64编码的正文", func(t *testing.T) {
		// "aGVsbG8gd29ybGQ=" 是 "hello world"
		raw := []byte("From: sender@example.com\r\n" +
			"Subject: encoded\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n" +
			"Content-Transfer-Encoding: base64\r\n" +
			"\r\n" +
			"aGVsbG8gd29ybGQ=\r\n")

		parsed, err := ParseEmail(raw)
		require.NoError(t, err)
		assert.Contains(t, parsed.Text, "hello world")
	})

	t.Run("解析RFC2047编码的主题", func(t *testing.T) {
		raw := []byte("From: sender@example.com\r\n" +
			"Subject: =?UTF-8?B?5L2g5aW9?=\r\n" +
			"Content-Type: text/plain\r\n" +
			"\r\n" +
			"body\r\n")

		parsed, err := ParseEmail(raw)
		require.NoError(t, err)
		assert.Equal(t, "你好", parsed.Subject)
	})

	t.Run("跳过附件只保留正文", func(t *testing.T) {
		raw := []byte("From: sender@example.com\r\n" +
			"Subject: with attachment\r\n" +
			"Content-Type: multipart/mixed; boundary=\"BOUNDARY\"\r\n" +
			"\r\n" +
			"--BOUNDARY\r\n" +
			"Content-Type: text/plain\r\n" +
			"\r\n" +
			"body text\r\n" +
			"--BOUNDARY\r\n" +
			"Content-Type: application/octet-stream\r\n" +
			"Content-Disposition: attachment; filename=\"file.bin\"\r\n" +
			"Content-Transfer-Encoding: base64\r\n" +
			"\r\n" +
			"AAAA\r\n" +
			"--BOUNDARY--\r\n")

		parsed, err := ParseEmail(raw)
		require.NoError(t, err)
		assert.Contains(t, parsed.Text, "body text")
	})

	t.Run("非法邮件返回错误", func(t *testing.T) {
		_, err := ParseEmail([]byte("not an email"))
		assert.Error(t, err)
	})
}

func TestSplitFrom(t *testing.T) {
	t.Run("从From头提取地址和显示名", func(t *testing.T) {
		addr, name := splitFrom("Sender Name <Sender@Example.com>", "envelope@example.com")
		assert.Equal(t, "sender@example.com", addr)
		assert.Equal(t, "Sender Name", name)
	})

	t.Run("From头缺失时回退到信封地址", func(t *testing.T) {
		addr, name := splitFrom("", "<Envelope@Example.com>")
		assert.Equal(t, "envelope@example.com", addr)
		assert.Empty(t, name)
	})

	t.Run("From头无法解析时回退到信封地址", func(t *testing.T) {
		addr, _ := splitFrom("not an address", "envelope@example.com")
		assert.Equal(t, "envelope@example.com", addr)
	})
}
