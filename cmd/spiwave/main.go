// Command spiwave runs a wired master+slave transfer, exports the bus
// lines as Saleae Logic 2 binary capture files and, for mode-0 MSB-first
// sessions, decodes the capture back with the saleae SPI analyzer to
// verify the waveform against what was sent.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/embedbits/spisim"
	"github.com/embedbits/spisim/internal/wave"
	"github.com/soypat/saleae"
	"github.com/soypat/saleae/analyzers"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "spiwave - Simulate SPI transfers and export Saleae digital capture files.\n\tUsage:\n")
		flag.PrintDefaults()
	}
	div := flag.Uint("div", 3, "Clock divisor: half period is div+1 driving ticks.")
	mode := flag.Uint("mode", 0, "SPI mode 0..3 (CPOL/CPHA).")
	lsb := flag.Bool("lsb", false, "Transmit least significant bit first.")
	txHex := flag.String("tx", "a5", "Hex bytes the master transmits.")
	replyHex := flag.String("reply", "5a", "Hex bytes queued on the slave, reused cyclically.")
	dir := flag.String("dir", ".", "Output directory for capture files.")
	tick := flag.Duration("tick", time.Microsecond, "Driving tick period.")
	verbosity := flag.Int("v", 0, "Logging verbosity. Higher is more verbose.")
	flag.Parse()

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo - slog.Level(*verbosity*4),
	})
	logger := slog.New(handler)

	w, err := hex.DecodeString(*txHex)
	if err != nil {
		log.Fatal("bad -tx hex: ", err)
	}
	reply, err := hex.DecodeString(*replyHex)
	if err != nil {
		log.Fatal("bad -reply hex: ", err)
	}
	if len(w) == 0 || len(reply) == 0 {
		log.Fatal("-tx and -reply must not be empty")
	}
	order := spisim.MSBFirst
	if *lsb {
		order = spisim.LSBFirst
	}
	cfg := spisim.Config{
		Divisor:   uint32(*div),
		Mode:      spisim.Mode(*mode),
		Order:     order,
		OwnSelect: true,
		Logger:    logger,
	}
	master, err := spisim.NewMaster(cfg)
	if err != nil {
		log.Fatal(err)
	}
	slaveCfg := cfg
	slaveCfg.SyncInputs = *div >= 2
	slave, err := spisim.NewSlave(slaveCfg)
	if err != nil {
		log.Fatal(err)
	}

	rec, err := wave.NewRecorder(tick.Seconds(), "cs", "sdo", "clk", "sdi")
	if err != nil {
		log.Fatal(err)
	}
	bus := spisim.NewBus(master, slave)
	bus.SetProbe(func(_ uint64, l spisim.Lines) {
		if err := rec.Sample(l.CS, l.MOSI, l.SCK, l.MISO); err != nil {
			log.Fatal(err)
		}
	})

	start := time.Now()
	r := make([]byte, len(w))
	for i, c := range w {
		bus.QueueSlave(0, reply[i%len(reply)])
		if err := bus.Transfer([]byte{c}, r[i:i+1]); err != nil {
			log.Fatal(err)
		}
	}
	// Trailing idle so the last deselect is visible in the capture.
	for i := 0; i < 4; i++ {
		bus.Tick()
	}
	logger.Info("simulation done",
		slog.String("sent", hex.EncodeToString(w)),
		slog.String("received", hex.EncodeToString(r)),
		slog.Uint64("ticks", bus.Ticks()),
		slog.Duration("elapsed", time.Since(start)),
	)

	// File naming matches common Logic 2 exports: cs, data, clk, then the
	// return data line.
	names := []string{"digital_0.bin", "digital_1.bin", "digital_2.bin", "digital_3.bin"}
	for i, name := range names {
		if err := writeChannel(rec, i, filepath.Join(*dir, name)); err != nil {
			log.Fatal(err)
		}
		logger.Info("wrote capture", slog.String("channel", rec.ChannelName(i)), slog.String("file", name))
	}

	if cfg.Mode != spisim.Mode0 || order != spisim.MSBFirst {
		logger.Info("skipping analyzer verification: decoder assumes mode 0, MSB first")
		return
	}
	if err := verify(logger, *dir, w, reply); err != nil {
		log.Fatal(err)
	}
}

func writeChannel(rec *wave.Recorder, i int, path string) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	return rec.WriteChannel(i, fp)
}

// verify reads the capture files back and decodes the SPI transactions
// the way analyzer tooling would.
func verify(logger *slog.Logger, dir string, sent, reply []byte) error {
	cs, err := opendigital(filepath.Join(dir, "digital_0.bin"))
	if err != nil {
		return err
	}
	sdo, err := opendigital(filepath.Join(dir, "digital_1.bin"))
	if err != nil {
		return err
	}
	clk, err := opendigital(filepath.Join(dir, "digital_2.bin"))
	if err != nil {
		return err
	}
	spi := analyzers.SPI{}
	txs, err := spi.Scan(clk, cs, sdo, sdo)
	if err != nil {
		return err
	}
	if len(txs) != len(sent) {
		return fmt.Errorf("decoded %d transactions; sent %d bytes", len(txs), len(sent))
	}
	for i, tx := range txs {
		logger.Info("decoded transaction",
			slog.Int("n", i),
			slog.String("sdo", hex.EncodeToString(tx.SDO)),
			slog.Float64("start", tx.StartTime()),
		)
		if len(tx.SDO) != 1 || tx.SDO[0] != sent[i] {
			return fmt.Errorf("transaction %d decoded %#x; sent %#x", i, tx.SDO, sent[i])
		}
	}
	logger.Info("analyzer verification passed", slog.Int("transactions", len(txs)))
	return nil
}

func opendigital(filename string) (*saleae.DigitalFile, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	df, err := saleae.ReadDigitalFile(fp)
	if err != nil {
		return nil, err
	}
	return df, nil
}
