// Command nbo drives the build orchestrator core end to end: it loads the
// rules assembly chain, instantiates the requested target and its modules,
// resolves the dependency graph and compile environments, plans unity
// batches, and emits the resulting action graph and dependency cache. It
// never invokes a compiler itself. It emits no precompiled-header actions:
// the pch.Planner passed to emitCompileForUnit is not consulted.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/shlex"
	"github.com/google/uuid"

	"github.com/nbo-build/nbo/src/actiongraph"
	"github.com/nbo-build/nbo/src/assembly"
	"github.com/nbo-build/nbo/src/cli"
	"github.com/nbo-build/nbo/src/core"
	"github.com/nbo-build/nbo/src/depcache"
	"github.com/nbo-build/nbo/src/depgraph"
	"github.com/nbo-build/nbo/src/discovery"
	"github.com/nbo-build/nbo/src/fs"
	"github.com/nbo-build/nbo/src/fscache"
	"github.com/nbo-build/nbo/src/modulerules"
	"github.com/nbo-build/nbo/src/pch"
	"github.com/nbo-build/nbo/src/registry"
	"github.com/nbo-build/nbo/src/rulescan"
	"github.com/nbo-build/nbo/src/session"
	"github.com/nbo-build/nbo/src/targetrules"
	"github.com/nbo-build/nbo/src/unity"

	"gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("nbo")

const version = "0.1.0"

var opts struct {
	Usage string `usage:"nbo plans native-code builds: it discovers rule declarations, composes the module/target graph, plans compilation and emits an action graph plus dependency cache. It does not itself invoke a compiler."`

	Target        string            `short:"t" long:"target" required:"true" description:"Name of the target to build (without the Target suffix)"`
	Platform      string            `short:"p" long:"platform" default:"Linux" description:"Target platform"`
	Configuration string            `short:"c" long:"configuration" default:"Development" description:"Build configuration"`
	Architecture  string            `long:"architecture" description:"Target architecture"`
	ProjectFile   string            `long:"project" description:"Path to the .project file, if building a project target"`
	EngineRoot    string            `long:"engine_root" required:"true" description:"Root of the engine source tree"`
	ProjectRoot   string            `long:"project_root" description:"Root of the project source tree, if any"`
	EngineVersion cli.Version       `long:"engine_version" default:"1.0.0" description:"Engine semantic version, used to invalidate stale rules assemblies"`
	ConfigFiles   []string          `long:"config_file" description:"Additional project config overlay files, applied in order"`
	Define        map[string]string `short:"D" long:"define" description:"Extra command-line overlay arguments, name=value"`
	CompilerArgs  string            `long:"compiler_args" description:"Extra raw arguments appended to every compile invocation, shell-quoted"`
	LinkerArgs    string            `long:"linker_args" description:"Extra raw arguments appended to the link invocation, shell-quoted"`
	ByteBudget    cli.ByteSize      `long:"byte_budget" description:"Unity batch byte budget; overrides the config file's unity_byte_budget when set"`

	NumThreads int           `short:"n" long:"num_threads" description:"Worker pool width; 0 picks a default"`
	Verbosity  cli.Verbosity `short:"v" long:"verbosity" default:"warning" description:"Verbosity of output"`
	OutputDir  string        `long:"output_dir" default:"Intermediate" description:"Intermediate/output directory, relative to project or engine root"`

	// Mode/From/To are never set by a human; they're how a RecursiveToolAction
	// re-invokes this binary to perform a sub-step (see actiongraph.RecursiveMode).
	Mode string `long:"mode" hidden:"true" description:"Internal: run a recursive sub-step instead of planning a build"`
	From string `long:"from" hidden:"true" description:"Internal: source path for -mode"`
	To   string `long:"to" hidden:"true" description:"Internal: destination path for -mode"`
}

func main() {
	cli.ParseFlagsOrDie("nbo", version, &opts)
	cli.InitLogging(opts.Verbosity)

	if opts.Mode != "" {
		if err := dispatchRecursiveMode(actiongraph.RecursiveMode(opts.Mode), opts.From, opts.To); err != nil {
			log.Errorf("%s", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		log.Errorf("%s", err)
		if kerr, ok := err.(*core.Error); ok {
			os.Exit(kerr.Kind.ExitCode())
		}
		os.Exit(1)
	}
}

func run() error {
	config := core.DefaultConfiguration()
	configPaths := []string{filepath.Join(rootDir(), core.ConfigFileName), filepath.Join(rootDir(), core.LocalConfigFileName)}
	configPaths = append(configPaths, opts.ConfigFiles...)
	if err := core.ReadConfigFiles(config, configPaths); err != nil {
		return err
	}
	config.Paths.EngineRoot = opts.EngineRoot
	config.Paths.ProjectRoot = opts.ProjectRoot
	if opts.ByteBudget != 0 {
		config.Build.UnityByteBudget = int64(opts.ByteBudget)
	}

	root, reg, err := buildAssembly(config)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	log.Infof("run %s: target=%s platform=%s configuration=%s", runID, opts.Target, opts.Platform, opts.Configuration)

	sess := session.New(config, root, reg, fscache.New(), newDepCacheChain(config), opts.NumThreads)

	compilerArgs, err := shlex.Split(opts.CompilerArgs)
	if err != nil {
		return core.NewConfigurationError("", opts.Target, "invalid -compiler_args: "+err.Error())
	}
	linkerArgs, err := shlex.Split(opts.LinkerArgs)
	if err != nil {
		return core.NewConfigurationError("", opts.Target, "invalid -linker_args: "+err.Error())
	}

	target, err := targetrules.CreateTarget(root, targetrules.Request{
		Name:          opts.Target,
		Platform:      opts.Platform,
		Config:        parseConfiguration(opts.Configuration),
		Architecture:  opts.Architecture,
		ProjectFile:   opts.ProjectFile,
		ProjectConfig: config,
		ExtraArgs:     opts.Define,
	}, targetrules.CommandLineOverlay{
		CompilerArgs: compilerArgs,
		LinkerArgs:   linkerArgs,
	})
	if err != nil {
		return err
	}

	graph := depgraph.NewGraph(target)
	for _, name := range target.ExtraModuleNames {
		m, err := modulerules.CreateModule(root, reg, modulerules.Request{Name: name, Target: target})
		if err != nil {
			return err
		}
		graph.AddModule(m)
	}
	if err := graph.DetectCycles(); err != nil {
		return err
	}

	builder := sess.BuilderFor(target.Name, selfPath())
	if err := emitActionsForTarget(sess, graph, builder, target, config); err != nil {
		return err
	}

	actions := builder.Actions()
	log.Infof("emitted %d actions for target %s (%s, %s)", len(actions), target.Name, opts.Platform, opts.Configuration)
	for _, d := range builder.Diagnostics() {
		log.Debugf("[%s] %s", d.Source, d.Message)
	}

	return sess.Finish()
}

// dispatchRecursiveMode runs the sub-step a RecursiveToolAction asked this
// binary to re-invoke itself for, instead of planning a build.
func dispatchRecursiveMode(mode actiongraph.RecursiveMode, from, to string) error {
	switch mode {
	case actiongraph.ModeStageRuntimeDependency:
		return fs.RecursiveCopy(from, to, 0644)
	default:
		return core.NewConfigurationError("", "", fmt.Sprintf("unknown recursive mode %q", mode))
	}
}

// buildAssembly scans and compiles the engine (and, if given, project)
// rules-assembly layers into a single parent chain, then builds the scope
// registry covering it.
func buildAssembly(config *core.ProjectConfig) (*assembly.Assembly, *registry.Registry, error) {
	scanner := rulescan.NewScanner(opts.NumThreads)
	compiler := assembly.NewCompiler()

	engineVersion := opts.EngineVersion.VersionString()
	layers := []assembly.Layer{
		{Name: "Engine", Kind: "engine", Root: opts.EngineRoot, EngineVersion: engineVersion},
	}
	if opts.ProjectRoot != "" {
		layers = append(layers, assembly.Layer{Name: "Project", Kind: "project", Root: opts.ProjectRoot, EngineVersion: engineVersion})
	}

	root, err := assembly.BuildChain(layers, scanner, compiler)
	if err != nil {
		return nil, nil, err
	}
	reg := registry.New(root.Scope)
	return root, reg, nil
}

// emitActionsForTarget builds each module's compile environment, discovers
// its source files, batches them into unity groups and emits one compile
// action per resulting translation unit plus a final link action.
func emitActionsForTarget(sess *session.BuildSession, graph *depgraph.Graph, builder *actiongraph.Builder, target *core.TargetRules, config *core.ProjectConfig) error {
	planner := pch.NewPlanner(graph)
	batcher := &unity.Batcher{ByteBudget: config.Build.UnityByteBudget, MinFileCount: config.Build.UnityMinFileCount, Size: unity.OSFileSizer}
	outDir := filepath.Join(outputRoot(), target.Name)

	var linkInputs []string
	for _, name := range target.ExtraModuleNames {
		module, ok := graph.Module(name)
		if !ok {
			continue
		}
		env, err := graph.BuildCompileEnvironment(baseEnvironment(target), name, target.Name)
		if err != nil {
			return err
		}

		disc := discovery.NewDiscoverer(discovery.DefaultPlatformExcludedFolders(knownPlatforms, map[string]bool{target.Platform: true}))
		result, err := disc.Discover(module.BaseDir)
		if err != nil {
			return err
		}

		sourceFiles := append(append([]string{}, result.FilesByClass[discovery.ClassCPP]...), result.FilesByClass[discovery.ClassC]...)
		sourceFiles = append(sourceFiles, result.FilesByClass[discovery.ClassCC]...)

		emitRuntimeDependencyActions(builder, module, outDir)

		if !module.UnityBuildDisabled {
			plan, err := batcher.Plan(name, sourceFiles)
			if err != nil {
				return err
			}
			for _, batch := range plan.Batches {
				linkInputs = append(linkInputs, emitCompileForUnit(sess, builder, module, env, target, planner, batch.Name, batch.Files))
			}
			for _, f := range plan.AdaptiveFiles {
				linkInputs = append(linkInputs, emitCompileForUnit(sess, builder, module, env, target, planner, f, []string{f}))
			}
		} else {
			for _, f := range sourceFiles {
				linkInputs = append(linkInputs, emitCompileForUnit(sess, builder, module, env, target, planner, f, []string{f}))
			}
		}
	}

	output := filepath.Join(outDir, linkedArtifactName(target))
	builder.LinkAction(linkerPath(target.Platform), linkerArgs(target, linkInputs, output), outDir, linkInputs, output)
	return nil
}

// emitRuntimeDependencyActions stages a module's RuntimeDependencies and
// BundleResources next to the target's linked artifact via a
// StageRuntimeDependency self-invocation, since staging may need to walk a
// directory or preserve a symlink that a plain CopyAction can't.
func emitRuntimeDependencyActions(builder *actiongraph.Builder, module *core.ModuleRules, outDir string) {
	for _, dep := range append(append([]string{}, module.RuntimeDependencies...), module.BundleResources...) {
		from := dep
		if !filepath.IsAbs(from) {
			from = filepath.Join(module.BaseDir, from)
		}
		to := filepath.Join(outDir, filepath.Base(dep))
		builder.RecursiveToolAction(actiongraph.ModeStageRuntimeDependency,
			[]string{"-from=" + from, "-to=" + to}, module.BaseDir, []string{from}, []string{to})
	}
}

// emitCompileForUnit emits one compile action (for a single source file or
// a unity batch) and inserts an empty DependencyInfo for the object file it
// produces into the session's dependency cache; no dependencies are
// discovered or recorded here.
func emitCompileForUnit(sess *session.BuildSession, builder *actiongraph.Builder, module *core.ModuleRules, env *core.CompileEnvironment, target *core.TargetRules, planner *pch.Planner, unitName string, files []string) string {
	objDir := filepath.Join(outputRoot(), module.Name, "Obj")
	objFile := filepath.Join(objDir, unitName+objectExtension())

	args := compileArgs(env, target, files)
	builder.CompileAction(compilerPath(), args, module.BaseDir, files[0], objFile, files[1:])

	if sess.DepCache != nil {
		cache, err := sess.DepCache.CacheFor(module.BaseDir)
		if err == nil {
			cache.Insert(objFile, &core.DependencyInfo{}, nil)
		}
	}
	return objFile
}

func baseEnvironment(target *core.TargetRules) *core.CompileEnvironment {
	return &core.CompileEnvironment{
		Platform:           target.Platform,
		Config:             target.Config,
		Architecture:       target.Architecture,
		UserIncludePaths:   core.NewOrderedSet(),
		SystemIncludePaths: core.NewOrderedSet(),
		Definitions:        core.NewOrderedSet(),
	}
}

func compileArgs(env *core.CompileEnvironment, target *core.TargetRules, files []string) []string {
	var args []string
	for _, inc := range env.UserIncludePaths.Items() {
		args = append(args, "-I", inc)
	}
	for _, inc := range env.SystemIncludePaths.Items() {
		args = append(args, "-isystem", inc)
	}
	for _, def := range env.Definitions.Items() {
		args = append(args, "-D"+def)
	}
	if target.DebugInfo {
		args = append(args, "-g")
	}
	args = append(args, target.AdditionalCompilerArguments...)
	args = append(args, "-c")
	args = append(args, files...)
	return args
}

func linkerArgs(target *core.TargetRules, inputs []string, output string) []string {
	args := append([]string{"-o", output}, inputs...)
	if target.DebugInfo {
		args = append(args, "-g")
	}
	args = append(args, target.AdditionalLinkerArguments...)
	return args
}

func linkedArtifactName(target *core.TargetRules) string {
	return target.Name
}

func newDepCacheChain(config *core.ProjectConfig) *depcache.Chain {
	root := outputRoot()
	return depcache.NewChain(root, func(baseDir string) string {
		return filepath.Join(baseDir, ".nbo-depcache")
	})
}

func outputRoot() string {
	if opts.ProjectRoot != "" {
		return filepath.Join(opts.ProjectRoot, opts.OutputDir)
	}
	return filepath.Join(opts.EngineRoot, opts.OutputDir)
}

func rootDir() string {
	if opts.ProjectRoot != "" {
		return opts.ProjectRoot
	}
	return opts.EngineRoot
}

func parseConfiguration(name string) core.Configuration {
	switch name {
	case "Debug":
		return core.Debug
	case "DebugGame":
		return core.DebugGame
	case "Shipping":
		return core.Shipping
	case "Test":
		return core.Test
	default:
		return core.Development
	}
}

func selfPath() string {
	p, err := os.Executable()
	if err != nil {
		return os.Args[0]
	}
	return p
}

func objectExtension() string {
	if opts.Platform == "Windows" {
		return ".obj"
	}
	return ".o"
}

func compilerPath() string {
	if opts.Platform == "Windows" {
		return "cl.exe"
	}
	return "clang++"
}

func linkerPath(platform string) string {
	if platform == "Windows" {
		return "link.exe"
	}
	return "clang++"
}

var knownPlatforms = []string{"Windows", "Linux", "Mac", "IOS", "Android", "Unix"}
