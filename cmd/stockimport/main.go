package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application"
	_ "github.com/peakcary/stock-analysis-system-sub001/internal/api"
	bizConfig "github.com/peakcary/stock-analysis-system-sub001/internal/config"
	bizConsts "github.com/peakcary/stock-analysis-system-sub001/internal/consts"
	"github.com/peakcary/stock-analysis-system-sub001/internal/model"
	_ "github.com/peakcary/stock-analysis-system-sub001/internal/registry_ext"
	"github.com/peakcary/stock-analysis-system-sub001/internal/service"
)

const usage = `usage:
  stockimport serve   [-config config/config.yaml]
  stockimport import  [-config ...] -type ttv -date 2024-02-20 [-mode overwrite|append] FILE
  stockimport recalc  [-config ...] -type ttv -date 2024-02-20 [-to 2024-02-28]`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "serve":
		err = serve(os.Args[2:])
	case "import":
		err = runImport(os.Args[2:])
	case "recalc":
		err = recalc(os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("stockimport %s: %v", os.Args[1], err)
	}
}

func newApp(cfgPath string) *application.App {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	app := application.NewApp(env, cfgPath)
	app.SetBizConfig(bizConfig.GetBizConfig())
	return app
}

func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", filepath.Join("config", "config.yaml"), "config file path")
	shutdown := fs.Duration("shutdown-timeout", 30*time.Second, "graceful shutdown timeout")
	_ = fs.Parse(args)
	app := newApp(*cfgPath)
	app.SetShutdownTimeout(*shutdown)
	return app.Run()
}

// oneShot 关闭 http_server 后启动全部组件, 执行 fn 后退出.
func oneShot(cfgPath string, fn func(ctx context.Context, svc *service.ImportService) error) error {
	if err := os.Setenv("HTTP_ENABLED", "false"); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(cfgPath)
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		app.Shutdown(stopCtx)
	}()
	comp, err := app.GetComponent(bizConsts.COMP_SVC_IMPORT)
	if err != nil {
		return err
	}
	return fn(ctx, comp.(*service.ImportService))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", filepath.Join("config", "config.yaml"), "config file path")
	key := fs.String("type", "", "file type key")
	date := fs.String("date", "", "trade date")
	mode := fs.String("mode", string(bizConsts.ModeOverwrite), "overwrite or append")
	_ = fs.Parse(args)
	if *key == "" || *date == "" || fs.NArg() != 1 {
		return fmt.Errorf("-type, -date and exactly one FILE are required\n%s", usage)
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	return oneShot(*cfgPath, func(ctx context.Context, svc *service.ImportService) error {
		res, err := svc.Import(ctx, &model.ImportRequest{
			FileTypeKey: *key, TradeDate: *date, Mode: bizConsts.ImportMode(*mode),
			Filename: filepath.Base(f.Name()), Body: f,
		})
		if res != nil {
			if perr := printJSON(res); perr != nil {
				return perr
			}
		}
		return err
	})
}

func recalc(args []string) error {
	fs := flag.NewFlagSet("recalc", flag.ExitOnError)
	cfgPath := fs.String("config", filepath.Join("config", "config.yaml"), "config file path")
	key := fs.String("type", "", "file type key")
	date := fs.String("date", "", "trade date, or range start with -to")
	to := fs.String("to", "", "range end (inclusive)")
	_ = fs.Parse(args)
	if *key == "" || *date == "" {
		return fmt.Errorf("-type and -date are required\n%s", usage)
	}

	return oneShot(*cfgPath, func(ctx context.Context, svc *service.ImportService) error {
		if *to == "" {
			rc, err := svc.Recalculate(ctx, *key, *date)
			if err != nil {
				return err
			}
			return printJSON(rc)
		}
		list, err := svc.RecalculateRange(ctx, *key, *date, *to)
		if err != nil {
			return err
		}
		return printJSON(list)
	})
}
