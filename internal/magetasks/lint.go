package magetasks

import "errors"

var golangciDisabled = "--disable=exhaustruct,varnamelen,ireturn,wrapcheck,nlreturn,gochecknoglobals,mnd,depguard,tagalign"

// LintAll runs every linter and reports all failures together.
func LintAll() error {
	return errors.Join(LintFormat(), LintVet(), LintStaticcheck(), LintGolangci())
}

// LintFormat checks code formatting.
func LintFormat() error {
	return Run("Go Format", "gofmt", "-l", "-d", ".")
}

// LintVet runs go vet, including the e2e build tag.
func LintVet() error {
	return Run("Go Vet", "go", "vet", "-tags", "e2e", "./...")
}

// LintStaticcheck runs staticcheck when installed.
func LintStaticcheck() error {
	return optional(Run("Staticcheck", "staticcheck", "./..."),
		"go install honnef.co/go/tools/cmd/staticcheck@latest")
}

// LintGolangci runs golangci-lint when installed.
func LintGolangci() error {
	return optional(Run("Golangci-lint", "golangci-lint", "run", golangciDisabled, "--timeout=5m", "./..."),
		"go install github.com/golangci/golangci-lint/cmd/golangci-lint@latest")
}

// LintGolangciFix runs golangci-lint with auto-fixes.
func LintGolangciFix() error {
	return optional(Run("Golangci-lint Fix", "golangci-lint", "run", "--fix", golangciDisabled, "--timeout=5m", "./..."),
		"go install github.com/golangci/golangci-lint/cmd/golangci-lint@latest")
}
