package bot

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/valory-xyz/triton-bot/internal/config"
)

// markdownV2SpecialChars lists the characters Telegram MarkdownV2
// requires to be escaped.
var markdownV2SpecialChars = strings.NewReplacer(
	`_`, `\_`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`(`, `\(`,
	`)`, `\)`,
	`~`, `\~`,
	"`", "\\`",
	`>`, `\>`,
	`#`, `\#`,
	`+`, `\+`,
	`-`, `\-`,
	`=`, `\=`,
	`|`, `\|`,
	`{`, `\{`,
	`}`, `\}`,
	`.`, `\.`,
	`!`, `\!`,
)

// EscapeMarkdownV2 escapes all MarkdownV2 special characters in text.
func EscapeMarkdownV2(text string) string {
	return markdownV2SpecialChars.Replace(text)
}

// AddressLink renders a markdown link from label to the address page on
// Gnosisscan.
func AddressLink(label string, addr common.Address) string {
	return fmt.Sprintf("[%s](%s)", label, fmt.Sprintf(config.GnosisscanAddressURL, addr.Hex()))
}

// TxLink renders a markdown link from label to the transaction page on
// Gnosisscan.
func TxLink(label string, hash common.Hash) string {
	return fmt.Sprintf("[%s](%s)", label, fmt.Sprintf(config.GnosisscanTxURL, hash.Hex()))
}
