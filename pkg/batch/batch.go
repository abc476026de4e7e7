package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shouni/go-scrape-dispatch/pkg/dispatch"
	"github.com/shouni/go-scrape-dispatch/pkg/types"
)

const (
	// DefaultMaxConcurrency は、バッチディスパッチのデフォルトの最大同時実行数を定義します。
	DefaultMaxConcurrency = 4
	// DefaultDispatchRateLimit は、外部ツールの起動間隔のレートリミッターを定義します。
	DefaultDispatchRateLimit = 500 * time.Millisecond
)

// Batcher は、複数URLに対する一括ディスパッチ機能を提供するインターフェースです。
type Batcher interface {
	DispatchInParallel(ctx context.Context, urls []string, directive string) []types.DispatchResult
}

// ParallelDispatcher は Batcher インターフェースを実装する並列処理構造体です。
// 一つの抽出指示を複数のターゲットURLへ適用し、外部ツールをURLごとに起動します。
type ParallelDispatcher struct {
	dispatcher     *dispatch.Dispatcher
	maxConcurrency int           // 最大並列数を保持するフィールド
	rateLimit      time.Duration // ツール起動間隔のレートリミッター
}

// NewParallelDispatcher は ParallelDispatcher を初期化します。
// 依存性として Dispatcher と、最大同時実行数を受け取ります。
func NewParallelDispatcher(dispatcher *dispatch.Dispatcher, maxConcurrency int) *ParallelDispatcher {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &ParallelDispatcher{
		dispatcher:     dispatcher,
		maxConcurrency: maxConcurrency,
		rateLimit:      DefaultDispatchRateLimit,
	}
}

// DispatchInParallel は Batcher インターフェースのメソッドを実装します。
// 外部ツールはURLごとに独立したプロセスとして起動されるため、
// 同時実行数はプロセス数の上限として機能します。
func (p *ParallelDispatcher) DispatchInParallel(ctx context.Context, urls []string, directive string) []types.DispatchResult {
	var wg sync.WaitGroup
	resultsChan := make(chan types.DispatchResult, len(urls))

	// バッファ付きチャネルをセマフォとして使用し、同時実行数を制限する
	semaphore := make(chan struct{}, p.maxConcurrency)

	rate := p.rateLimit
	if rate <= 0 {
		rate = DefaultDispatchRateLimit
	}
	ticker := time.NewTicker(rate)
	defer ticker.Stop()
	rateLimiter := ticker.C

	for _, url := range urls {
		wg.Add(1)

		// リソース（スロット）の確保。maxConcurrency件実行中の場合はここでブロックして待機。
		semaphore <- struct{}{}

		go func(u string) {
			defer wg.Done()

			// 処理完了後にリソース（スロット）を解放。他の待機中のGoroutineが実行可能になる。
			defer func() { <-semaphore }()

			select {
			case <-rateLimiter:
				// レートリミット間隔が経過し、起動が許可された
			case <-ctx.Done():
				resultsChan <- types.DispatchResult{
					URL:   u,
					Error: ctx.Err(),
				}
				return
			}

			result, err := p.dispatcher.Dispatch(ctx, u, directive)

			var dispatchErr error
			if err != nil {
				var exitErr *dispatch.ToolExitError
				if errors.As(err, &exitErr) {
					dispatchErr = fmt.Errorf("外部ツールが失敗を報告しました (終了コード %d): %w", exitErr.ExitCode, err)
				} else {
					dispatchErr = fmt.Errorf("ディスパッチに失敗しました: %w", err)
				}
				resultsChan <- types.DispatchResult{
					URL:   u,
					Error: dispatchErr,
				}
				return
			}

			resultsChan <- types.DispatchResult{
				URL:        u,
				OutputPath: result.OutputPath,
				Stdout:     result.Stdout,
			}
		}(url)
	}

	wg.Wait()
	close(resultsChan)

	var finalResults []types.DispatchResult
	for res := range resultsChan {
		finalResults = append(finalResults, res)
	}

	return finalResults
}
