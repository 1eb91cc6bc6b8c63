package cmd_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"

	"github.com/luma/heosbridge/cmd"
)

var _ = Describe("cmd", func() {
	It("registers every command", func() {
		names := []string{}
		for _, c := range cmd.RootCmd.Commands() {
			names = append(names, c.Name())
		}

		Expect(names).To(ContainElements("connect", "simulate", "version", "gen"))
	})

	It("prints build information as JSON", func() {
		out := &bytes.Buffer{}
		cmd.RootCmd.SetOut(out)
		cmd.RootCmd.SetArgs([]string{"version", "--json"})

		Expect(cmd.RootCmd.Execute()).To(Succeed())
		Expect(gjson.Get(out.String(), "version").String()).To(Equal("dev"))
		Expect(gjson.Get(out.String(), "go_version").String()).NotTo(BeEmpty())
	})

	It("generates man pages and a markdown reference for every command", func() {
		dir, err := os.MkdirTemp("", "heosbridge-gen")
		Expect(err).To(Succeed())
		defer os.RemoveAll(dir)

		out := &bytes.Buffer{}
		cmd.RootCmd.SetOut(out)

		cmd.RootCmd.SetArgs([]string{"gen", "man", "--dir", filepath.Join(dir, "man")})
		Expect(cmd.RootCmd.Execute()).To(Succeed())
		Expect(filepath.Join(dir, "man", "heosbridge-connect.1")).To(BeAnExistingFile())

		cmd.RootCmd.SetArgs([]string{"gen", "markdown", "--dir", filepath.Join(dir, "md")})
		Expect(cmd.RootCmd.Execute()).To(Succeed())
		Expect(filepath.Join(dir, "md", "heosbridge_simulate.md")).To(BeAnExistingFile())

		Expect(out.String()).To(ContainSubstring("Markdown reference written to"))
	})

	It("refuses to connect without a host", func() {
		cmd.RootCmd.SetArgs([]string{"connect"})

		Expect(cmd.RootCmd.Execute()).To(MatchError(ContainSubstring("no cluster host")))
	})
})
