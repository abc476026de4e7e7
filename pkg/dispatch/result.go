package dispatch

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadScrapedData は、外部抽出ツールが --output に書き出したJSONファイルを読み込みます。
// ドキュメントのスキーマはツール側の所有物であり、ここでは関知しません。
// そのため構造体へのデコードは行わず、有効なJSONであることのみを検証して
// 生のまま返します。
func LoadScrapedData(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("抽出結果ファイルの読み込みエラー (%s): %w", path, err)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("抽出結果ファイルが有効なJSONではありません (%s)", path)
	}

	return json.RawMessage(data), nil
}
