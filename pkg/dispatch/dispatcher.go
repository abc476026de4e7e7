package dispatch

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultInterpreter は、外部抽出ツールを起動するインタプリタのデフォルトです。
	DefaultInterpreter = "python"
	// DefaultToolPath は、外部抽出ツールのデフォルトの起動パスです。
	DefaultToolPath = "tools/scrape_tool.py"
)

// Dispatcher は、ターゲットURLと抽出指示を外部抽出ツールに引き渡し、
// その完了ステータスを観測する機能を提供します。
// ツールの挙動や出力スキーマには関知せず、引数ベクトルと終了コード、
// および --output に書き出されるJSONファイルのパスのみを扱います。
type Dispatcher struct {
	interpreter string
	toolPath    string
	outputFile  string // 固定の出力先 (単発ディスパッチ向け)
	outputDir   string // ターゲットごとに出力先を導出するディレクトリ (バッチ向け)
	runner      Runner
}

// Result は、一回のディスパッチの成功結果を保持します。
type Result struct {
	Target     string        // 処理対象のURL
	Directive  string        // ツールに渡した抽出指示
	OutputPath string        // ツールがJSONを書き出したパス (未指定時は空)
	Stdout     string        // ツールの標準出力
	Duration   time.Duration // 起動から終了までの所要時間
}

// Option は Dispatcher の生成時オプションです。
type Option func(*Dispatcher)

// WithInterpreter は、ツールを起動するインタプリタを設定します (デフォルト: python)。
func WithInterpreter(interpreter string) Option {
	return func(d *Dispatcher) {
		if interpreter != "" {
			d.interpreter = interpreter
		}
	}
}

// WithOutputFile は、ツールの --output に渡す固定の出力ファイルパスを設定します。
// 全ディスパッチが同一ファイルへ書き込むため、並列実行には WithOutputDir を使用してください。
func WithOutputFile(path string) Option {
	return func(d *Dispatcher) {
		d.outputFile = path
	}
}

// WithOutputDir は、ターゲットURLごとに出力ファイル名を導出するディレクトリを設定します。
func WithOutputDir(dir string) Option {
	return func(d *Dispatcher) {
		d.outputDir = dir
	}
}

// WithRunner は、プロセス起動の実装を差し替えます (主にテスト用)。
func WithRunner(r Runner) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.runner = r
		}
	}
}

// New は、新しい Dispatcher を生成します。
// toolPath が空の場合はエラーを返します。
func New(toolPath string, opts ...Option) (*Dispatcher, error) {
	if strings.TrimSpace(toolPath) == "" {
		return nil, fmt.Errorf("外部抽出ツールのパスが指定されていません")
	}

	d := &Dispatcher{
		interpreter: DefaultInterpreter,
		toolPath:    toolPath,
		runner:      NewExecRunner(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Argv は、外部抽出ツールの起動に用いる引数ベクトルを構築します。
// ターゲットと指示はそれぞれ独立した引数スロットとして渡されるため、
// 値に含まれるシェルメタ文字が起動内容を変えることはありません。
func (d *Dispatcher) Argv(target, directive string) []string {
	argv := []string{d.interpreter, d.toolPath, target, directive}
	if out := d.outputPathFor(target); out != "" {
		argv = append(argv, "--output", out)
	}
	return argv
}

// Dispatch は、外部抽出ツールを同期的に起動し、終了まで呼び出し元をブロックします。
// タイムアウトは設定しません。打ち切りが必要な場合は、呼び出し側が期限付きの
// コンテキストを渡してください。
func (d *Dispatcher) Dispatch(ctx context.Context, target, directive string) (*Result, error) {
	// 1. 入力の検証
	if strings.TrimSpace(target) == "" {
		return nil, fmt.Errorf("ターゲットURLが指定されていません")
	}
	if strings.TrimSpace(directive) == "" {
		return nil, fmt.Errorf("抽出指示が指定されていません")
	}

	// 2. 引数ベクトルの構築と実行
	start := time.Now()
	argv := d.Argv(target, directive)

	stdout, err := d.runner.Run(ctx, argv[0], argv[1:]...)
	if err != nil {
		// コンテキストの期限切れ/キャンセルはツール自身の失敗と区別する
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("外部抽出ツールの実行が中断されました (URL: %s): %w", target, ctxErr)
		}
		return nil, fmt.Errorf("外部抽出ツールの実行エラー (URL: %s): %w", target, err)
	}

	// 3. 成功結果の構築
	return &Result{
		Target:     target,
		Directive:  directive,
		OutputPath: d.outputPathFor(target),
		Stdout:     string(stdout),
		Duration:   time.Since(start),
	}, nil
}

// outputPathFor は、このディスパッチでツールの --output に渡すパスを返します。
// 出力先が設定されていない場合は空文字列を返し、--output は付与されません。
func (d *Dispatcher) outputPathFor(target string) string {
	if d.outputFile != "" {
		return d.outputFile
	}
	if d.outputDir != "" {
		return filepath.Join(d.outputDir, outputFileName(target))
	}
	return ""
}

// outputFileName は、ターゲットURLから出力ファイル名を導出します。
// 同一URLに対しては常に同じ名前を返します (再実行時は上書き)。
// スラグ化で区別が潰れるURL同士 (例: 末尾スラッシュの有無) が同じファイルへ
// 書き込まないよう、元のURL全体のダイジェストを末尾に付与します。
func outputFileName(target string) string {
	h := fnv.New32a()
	h.Write([]byte(target))
	digest := fmt.Sprintf("%08x", h.Sum32())

	parsed, err := url.Parse(target)
	if err != nil || parsed.Host == "" {
		return "scraped_" + digest + ".json"
	}

	slug := parsed.Host + parsed.Path
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, slug)
	slug = strings.Trim(slug, "._")
	if slug == "" {
		return "scraped_" + digest + ".json"
	}
	return slug + "_" + digest + ".json"
}
