package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/quasilyte/gdata/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/ivlev/vnplay/internal/config"
	"github.com/ivlev/vnplay/internal/engine"
	"github.com/ivlev/vnplay/internal/script"
	"github.com/ivlev/vnplay/internal/store"
	"github.com/ivlev/vnplay/internal/system"
)

var buildVersion = "dev"

func main() {
	defaults := config.Default()

	scriptPtr := flag.String("script", "", "Путь к сценарию .yaml/.json (по умолчанию: самый свежий файл в scripts/)")
	configPtr := flag.String("config", "config.yaml", "Путь к config.yaml (необязательно)")
	addrPtr := flag.String("addr", defaults.Addr, "Адрес HTTP/WebSocket сервера (пусто - без сервера)")
	mediaPtr := flag.String("media", defaults.Media.Dir, "Папка с озвучкой и видео")
	proberPtr := flag.String("prober", defaults.Media.Prober, "Определение длительности медиа: ffprobe, none")
	autoPtr := flag.Bool("auto", false, "Автовоспроизведение")
	fpsPtr := flag.Int("fps", defaults.Playback.FPS, "Частота кадров анимации")
	charDelayPtr := flag.Int("char-delay", defaults.Playback.CharDelayMs, "Задержка печати символа (мс)")
	offloadPtr := flag.Bool("offload", defaults.Playback.Offload, "Считать анимацию в отдельной горутине")
	logLevelPtr := flag.String("log-level", defaults.LogLevel, "Уровень логов: debug, info, warn, error")
	qrPtr := flag.String("qr", "", "Сохранить QR-код адреса просмотра в PNG")
	exportPtr := flag.String("export-default", "", "Записать стартовый сценарий в файл и выйти")
	presetPtr := flag.String("preset", "", "Воспроизвести пресет из библиотеки по id")
	savePresetPtr := flag.Bool("save-preset", false, "Сохранить сценарий как пресет в библиотеку")
	importPtr := flag.String("import", "", "Импортировать пресет или группу из JSON (файл или папка)")
	listPtr := flag.Bool("list-presets", false, "Показать пресеты библиотеки и выйти")
	exitOnEndPtr := flag.Bool("exit-on-end", false, "Завершить работу в конце сценария")
	statsPtr := flag.Bool("stats", false, "Показать отчет о сессии")

	flag.Parse()

	cfg := defaults
	cfg.ScriptPath = *scriptPtr
	cfg.Addr = *addrPtr
	cfg.LogLevel = *logLevelPtr
	cfg.QRPath = *qrPtr
	cfg.ShowStats = *statsPtr
	cfg.BuildVersion = buildVersion
	cfg.Playback.AutoPlay = *autoPtr
	cfg.Playback.FPS = *fpsPtr
	cfg.Playback.CharDelayMs = *charDelayPtr
	cfg.Playback.Offload = *offloadPtr
	cfg.Media.Dir = *mediaPtr
	cfg.Media.Prober = *proberPtr

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if _, err := os.Stat(*configPtr); err == nil {
		fileCfg, err := config.Load(*configPtr)
		if err != nil {
			log.Warn().Err(err).Str("path", *configPtr).Msg("config load failed; proceeding with flags")
		} else {
			cfg.Merge(fileCfg)
		}
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level, using info")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	system.InitResourceLimits()

	if *exportPtr != "" {
		if err := script.WriteScript(script.DefaultScript(), *exportPtr); err != nil {
			log.Fatal().Err(err).Msg("[-] Ошибка записи сценария")
		}
		fmt.Printf("[+++] Стартовый сценарий записан: %s\n", *exportPtr)
		return
	}

	// ---- Preset library ----
	gm, err := gdata.Open(gdata.Config{AppName: cfg.Store.AppName})
	if err != nil {
		log.Warn().Err(err).Msg("хранилище недоступно, библиотека пресетов только в памяти")
		gm = nil
	}
	lib, err := store.Open(gm, cfg.Store.SaveDelay())
	if err != nil {
		log.Warn().Err(err).Msg("библиотека пресетов повреждена, начинаем с пустой")
	}
	defer flushLibrary(lib)
	fatal := func(err error, msg string) { failWithLibrary(lib, err, msg) }

	if *importPtr != "" {
		if err := importInto(lib, *importPtr); err != nil {
			log.Error().Err(err).Str("path", *importPtr).Msg("[-] Импорт не удался")
		}
	}

	if *listPtr {
		for _, p := range lib.Presets() {
			fmt.Printf("%s\t%s\t%s\n", p.ID, p.Name, time.UnixMilli(p.UpdatedAt).Format("2006-01-02 15:04"))
		}
		for _, g := range lib.Groups() {
			fmt.Printf("%s\t[группа] %s\t%d пресетов\n", g.ID, g.Name, len(g.Presets))
		}
		return
	}

	s, err := resolveScript(cfg, lib, *presetPtr)
	if err != nil {
		fatal(err, "[-] Ошибка загрузки сценария")
	}
	if err := s.Validate(); err != nil {
		fatal(err, "[-] Сценарий содержит ошибки")
	}

	if *savePresetPtr {
		lib.SetCurrent(s)
		p := lib.SaveCurrentAsPreset()
		fmt.Printf("[*] Сохранен пресет: %s\n", p.ID)
	}

	if cfg.QRPath != "" && cfg.Addr != "" {
		url := viewerURL(cfg.Addr)
		if err := qrcode.WriteFile(url, qrcode.Medium, 256, cfg.QRPath); err != nil {
			log.Warn().Err(err).Msg("не удалось создать QR-код")
		} else {
			fmt.Printf("[*] QR-код %s сохранен: %s\n", url, cfg.QRPath)
		}
	}

	sess, err := engine.NewSession(cfg, s)
	if err != nil {
		fatal(err, "[-] Ошибка инициализации сессии")
	}

	// ---- Run until signal, q or the end of the script ----
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go readKeys(sess, cancel)
	if *exitOnEndPtr {
		go func() {
			select {
			case <-sess.Ended():
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	fmt.Println("[*] Enter - дальше, b - назад, a - автовоспроизведение, q - выход")
	if err := sess.Run(ctx); err != nil {
		log.Error().Err(err).Msg("[-] Ошибка сессии")
		return
	}
	fmt.Println("[+++] Сессия завершена")
}

// exitFatal is replaced in tests
var exitFatal = func(err error, msg string) { log.Fatal().Err(err).Msg(msg) }

func flushLibrary(lib *store.Library) {
	if err := lib.Flush(); err != nil {
		log.Error().Err(err).Msg("не удалось сохранить библиотеку пресетов")
	}
}

// failWithLibrary writes the library before exiting; log.Fatal skips deferred calls
func failWithLibrary(lib *store.Library, err error, msg string) {
	flushLibrary(lib)
	exitFatal(err, msg)
}

func resolveScript(cfg *config.Config, lib *store.Library, presetID string) (*script.DialogueScript, error) {
	if presetID != "" {
		if err := lib.LoadPreset(presetID); err != nil {
			return nil, err
		}
		return lib.Current(), nil
	}

	path := cfg.ScriptPath
	if path == "" {
		latest, err := script.FindLatestScript("scripts")
		if err != nil {
			fmt.Println("[!] Сценарий не найден, используется стартовый")
			return script.DefaultScript(), nil
		}
		path = latest
	}
	fmt.Printf("[*] Выбран сценарий: %s\n", path)
	return script.ReadScript(path)
}

// importInto reads path, or the newest .json in it when path is a directory
func importInto(lib *store.Library, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		if path, err = system.FindLatest(path, ".json"); err != nil {
			return err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	res, err := lib.ImportJSON(data)
	if err != nil {
		return err
	}
	fmt.Printf("[*] Импортировано пресетов: %d из %s\n", len(res.Presets), path)
	return nil
}

func readKeys(sess *engine.Session, quit func()) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		switch strings.TrimSpace(strings.ToLower(sc.Text())) {
		case "":
			sess.Advance()
		case "b":
			sess.Rewind()
		case "a":
			sess.ToggleAutoPlay()
		case "q":
			quit()
			return
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		log.Debug().Err(err).Msg("stdin")
	}
}

// viewerURL is the address phones on the same network should open
func viewerURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" {
		if h, err := os.Hostname(); err == nil {
			host = h
		} else {
			host = "localhost"
		}
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}
