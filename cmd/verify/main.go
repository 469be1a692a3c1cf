// Package main recomputes a draw from its published seed so anyone can
// check the winner selection independently. Given the seed and the
// participant count (or an ordered participant list), it prints the winning
// positions and their prize tiers.
package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/lottery"
)

func main() {
	seedHex := flag.String("seed", "", "Draw seed as 64 hex characters (published in the draw event)")
	participants := flag.Int("participants", 0, "Number of participants in the settled round")
	listPath := flag.String("list", "", "Optional file with one participant address per line, in settlement order")
	total := flag.Uint64("total", 0, "Optional total pool in base units; prints the full prize breakdown")

	flag.Parse()

	if *seedHex == "" {
		fatalf("--seed is required")
	}
	raw, err := hex.DecodeString(*seedHex)
	if err != nil || len(raw) != 32 {
		fatalf("--seed must be 64 hex characters (32 bytes)")
	}
	var seed [32]byte
	copy(seed[:], raw)

	var addrs []string
	if *listPath != "" {
		addrs, err = readList(*listPath)
		if err != nil {
			fatalf("read participant list: %v", err)
		}
		if *participants != 0 && *participants != len(addrs) {
			fatalf("--participants=%d disagrees with list length %d", *participants, len(addrs))
		}
		*participants = len(addrs)
	}
	if *participants == 0 {
		fatalf("--participants or --list is required")
	}

	winners, err := lottery.SelectWinners(seed, *participants)
	if err != nil {
		fatalf("%v", err)
	}

	tiers := []string{"1st", "2nd", "2nd", "3rd", "3rd", "3rd", "lucky", "lucky", "lucky", "lucky", "lucky"}
	fmt.Printf("seed         %s\n", *seedHex)
	fmt.Printf("participants %d\n\n", *participants)
	for i, pos := range winners {
		if addrs != nil {
			fmt.Printf("%-5s  position %4d  %s\n", tiers[i], pos, addrs[pos])
		} else {
			fmt.Printf("%-5s  position %4d\n", tiers[i], pos)
		}
	}

	if *total > 0 {
		bd, err := lottery.ComputeBreakdown(*total, *participants)
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("\ntotal pool    %d\n", bd.TotalPool)
		fmt.Printf("burn          %d\n", bd.Burn)
		fmt.Printf("platform fee  %d\n", bd.PlatformFee)
		fmt.Printf("rollover      %d\n", bd.Rollover)
		fmt.Printf("1st prize     %d\n", bd.FirstPrize)
		fmt.Printf("2nd prize     %d x%d\n", bd.SecondPrize, domain.SecondPrizeWinners)
		fmt.Printf("3rd prize     %d x%d\n", bd.ThirdPrize, domain.ThirdPrizeWinners)
		fmt.Printf("lucky prize   %d x%d\n", bd.LuckyPrize, domain.LuckyPrizeWinners)
		fmt.Printf("universal     %d x%d\n", bd.UniversalPrize, bd.UniversalCount)
	}
}

func readList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var addrs []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addrs = append(addrs, line)
	}
	return addrs, sc.Err()
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "verify: "+format+"\n", args...)
	os.Exit(1)
}
