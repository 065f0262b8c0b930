package main

import (
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"terrastream/internal/gpu"
	"terrastream/internal/texgen"
)

// demoWindow owns the GL context texture uploads run on.
type demoWindow struct {
	win *glfw.Window
}

func openWindow() (*demoWindow, error) {
	if err := glfw.Init(); err != nil {
		return nil, err
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	win, err := glfw.CreateWindow(900, 600, "terrastream", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, err
	}
	win.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, err
	}
	glfw.SwapInterval(0)

	return &demoWindow{win: win}, nil
}

func (w *demoWindow) uploader() texgen.Uploader {
	return gpu.Uploader{}
}

func (w *demoWindow) shouldClose() bool {
	return w.win.ShouldClose()
}

func (w *demoWindow) present() {
	gl.ClearColor(0.05, 0.07, 0.12, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	w.win.SwapBuffers()
	glfw.PollEvents()
}

func (w *demoWindow) close() {
	glfw.Terminate()
}
