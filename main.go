package main

import "github.com/shouni/go-scrape-dispatch/cmd"

// main 関数は、CLIのエントリポイントです。コマンドの登録と実行は cmd パッケージに委譲します。
func main() {
	cmd.Execute()
}
