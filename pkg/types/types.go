package types

// DispatchResult は、特定のURLに対するディスパッチの結果、またはその処理中に発生したエラーを保持します。
// これは、バッチディスパッチの出力として利用されます。
type DispatchResult struct {
	URL        string // 処理対象のURL
	OutputPath string // ツールがJSONを書き出したパス (未指定時は空)
	Stdout     string // ツールの標準出力
	Error      error  // 処理中に発生したエラー
}
