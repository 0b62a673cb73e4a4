package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/raywall/fixsim/pkg/loader"
	"github.com/raywall/fixsim/pkg/rules"
	"github.com/spf13/cobra"
)

var errInvalidConfig = errors.New("configuração contém erros lógicos")

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Valida a configuração e aponta regras suspeitas sem abrir a sessão FIX",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := configFlag(cmd)
			if err != nil {
				return err
			}
			return runValidate(cmd, path, cmd.OutOrStdout())
		},
	}
}

func runValidate(cmd *cobra.Command, path string, out io.Writer) error {
	asJSON := os.Getenv("OUTPUT_FORMAT") == "json"
	if !asJSON {
		fmt.Fprintf(out, "🔍 Analisando configuração: %s ...\n", path)
	}

	// 1. Load (Validação Estrutural)
	cfg, err := loader.Load(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("❌ Erro de Carregamento/Estrutura:\n%w", err)
	}

	// 2. Analyze (Validação Lógica/Semântica)
	report, err := rules.Analyze(cfg)
	if err != nil {
		return fmt.Errorf("❌ Erro interno do analisador: %w", err)
	}

	// Output JSON para integração com pipelines
	if asJSON {
		if err := json.NewEncoder(out).Encode(report); err != nil {
			return err
		}
		if !report.Valid {
			return errInvalidConfig
		}
		return nil
	}

	for _, w := range report.Warnings {
		fmt.Fprintf(out, " ⚠ %s\n", w)
	}
	if !report.Valid {
		fmt.Fprintln(out, "❌ A configuração contém erros lógicos:")
		for _, e := range report.Errors {
			fmt.Fprintf(out, " - %s\n", e)
		}
		return errInvalidConfig
	}

	fmt.Fprintf(out, "✅ Configuração válida: %s, %d regra(s)\n", cfg.FixVersion, len(cfg.CustomReply))
	return nil
}
