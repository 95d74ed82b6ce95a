package bot

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestEscapeMarkdownV2(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"a_b*c", `a\_b\*c`},
		{"[label](url)", `\[label\]\(url\)`},
		{"1.5 OLAS!", `1\.5 OLAS\!`},
		{"a-b+c=d", `a\-b\+c\=d`},
		{"", ""},
	}
	for _, c := range cases {
		if got := EscapeMarkdownV2(c.in); got != c.want {
			t.Errorf("EscapeMarkdownV2(%q): expected %q, got %q", c.in, c.want, got)
		}
	}
}

func TestAddressLink(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	got := AddressLink("Agent EOA", addr)
	want := "[Agent EOA](https://gnosisscan.io/address/0x1111111111111111111111111111111111111111)"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTxLink(t *testing.T) {
	hash := common.HexToHash("0xabcd")
	got := TxLink("withdrawal transaction", hash)
	if got != "[withdrawal transaction](https://gnosisscan.io/tx/"+hash.Hex()+")" {
		t.Errorf("unexpected link: %q", got)
	}
}
