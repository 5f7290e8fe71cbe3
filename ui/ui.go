package ui

import (
	"log/slog"
	"unsafe"

	"github.com/newhook/bbc/bbc/bbc"
	"github.com/veandco/go-sdl2/sdl"
)

// UI owns the window, input capture and frame presentation. It runs on the
// process main thread (an SDL requirement) while the emulation thread runs
// the machine; the two share only the keyboard matrix and the message
// channels.
type UI struct {
	machine *bbc.Machine
	log     *slog.Logger

	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture

	syncRender bool
	messages   chan bbc.Message
}

func New(machine *bbc.Machine, syncRender bool, log *slog.Logger) (*UI, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, err
	}
	window, err := sdl.CreateWindow("BBC Micro",
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		bbc.SCREEN_WIDTH, bbc.SCREEN_HEIGHT,
		sdl.WINDOW_SHOWN)
	if err != nil {
		return nil, err
	}
	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		return nil, err
	}
	texture, err := renderer.CreateTexture(
		uint32(sdl.PIXELFORMAT_ABGR8888),
		sdl.TEXTUREACCESS_STREAMING,
		bbc.SCREEN_WIDTH, bbc.SCREEN_HEIGHT)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		return nil, err
	}
	u := &UI{
		machine:    machine,
		log:        log,
		window:     window,
		renderer:   renderer,
		texture:    texture,
		syncRender: syncRender,
		messages:   make(chan bbc.Message, 4),
	}
	go u.pump()
	return u, nil
}

// pump forwards channel messages into a Go channel the event loop can poll
// without blocking. Repeated VSYNCs may be dropped but never reordered.
func (u *UI) pump() {
	for {
		msg, err := u.machine.ToUI.Receive()
		if err != nil {
			u.messages <- bbc.Message{Kind: bbc.MsgExited}
			return
		}
		select {
		case u.messages <- msg:
		default:
			if msg.Kind != bbc.MsgVSync {
				u.messages <- msg
			}
		}
	}
}

// Run is the UI thread main loop: window events and channel messages.
func (u *UI) Run() {
	defer u.cleanup()
	for {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch ev := event.(type) {
			case *sdl.QuitEvent:
				// Window closed: flag the driver and let the emulation
				// thread stop at its next dispatcher exit.
				u.machine.Exit(0)
				u.machine.FromUI.Send(bbc.Message{Kind: bbc.MsgExited})
				return
			case *sdl.KeyboardEvent:
				u.handleKey(ev)
			case *sdl.WindowEvent:
				if ev.Event == sdl.WINDOWEVENT_FOCUS_LOST {
					u.machine.Keyboard.Clear()
				}
			}
		}
		select {
		case msg := <-u.messages:
			switch msg.Kind {
			case bbc.MsgVSync:
				u.present()
				if u.syncRender {
					u.machine.FromUI.Send(bbc.Message{Kind: bbc.MsgRenderDone})
				}
			case bbc.MsgExited:
				return
			}
		default:
			sdl.Delay(2)
		}
	}
}

func (u *UI) present() {
	buffer := u.machine.Framebuffer()
	if err := u.texture.Update(nil, unsafe.Pointer(&buffer[0]), bbc.SCREEN_WIDTH*4); err != nil {
		u.log.Warn("texture update failed", slog.Any("err", err))
		return
	}
	u.renderer.Clear()
	u.renderer.Copy(u.texture, nil, nil)
	u.renderer.Present()
}

func (u *UI) handleKey(ev *sdl.KeyboardEvent) {
	pos, ok := keymap[ev.Keysym.Scancode]
	if !ok {
		return
	}
	u.machine.Keyboard.SetKey(pos[0], pos[1], ev.Type == sdl.KEYDOWN)
}

func (u *UI) cleanup() {
	if u.texture != nil {
		u.texture.Destroy()
	}
	if u.renderer != nil {
		u.renderer.Destroy()
	}
	if u.window != nil {
		u.window.Destroy()
	}
	sdl.Quit()
}

// keymap places host scancodes onto the BBC's row/column switch matrix.
var keymap = map[sdl.Scancode][2]int{
	sdl.SCANCODE_A:      {4, 1},
	sdl.SCANCODE_B:      {6, 4},
	sdl.SCANCODE_C:      {5, 2},
	sdl.SCANCODE_D:      {3, 2},
	sdl.SCANCODE_E:      {2, 2},
	sdl.SCANCODE_F:      {4, 3},
	sdl.SCANCODE_G:      {5, 3},
	sdl.SCANCODE_H:      {5, 4},
	sdl.SCANCODE_I:      {2, 5},
	sdl.SCANCODE_J:      {4, 5},
	sdl.SCANCODE_K:      {4, 6},
	sdl.SCANCODE_L:      {5, 6},
	sdl.SCANCODE_M:      {6, 5},
	sdl.SCANCODE_N:      {5, 5},
	sdl.SCANCODE_O:      {3, 6},
	sdl.SCANCODE_P:      {3, 7},
	sdl.SCANCODE_Q:      {1, 0},
	sdl.SCANCODE_R:      {3, 3},
	sdl.SCANCODE_S:      {5, 1},
	sdl.SCANCODE_T:      {2, 3},
	sdl.SCANCODE_U:      {3, 5},
	sdl.SCANCODE_V:      {6, 3},
	sdl.SCANCODE_W:      {2, 1},
	sdl.SCANCODE_X:      {4, 2},
	sdl.SCANCODE_Y:      {4, 4},
	sdl.SCANCODE_Z:      {6, 1},
	sdl.SCANCODE_0:      {2, 7},
	sdl.SCANCODE_1:      {3, 0},
	sdl.SCANCODE_2:      {3, 1},
	sdl.SCANCODE_3:      {1, 1},
	sdl.SCANCODE_4:      {1, 2},
	sdl.SCANCODE_5:      {1, 3},
	sdl.SCANCODE_6:      {3, 4},
	sdl.SCANCODE_7:      {2, 4},
	sdl.SCANCODE_8:      {1, 5},
	sdl.SCANCODE_9:      {2, 6},
	sdl.SCANCODE_SPACE:  {6, 2},
	sdl.SCANCODE_RETURN: {4, 9},
	sdl.SCANCODE_ESCAPE: {7, 0},
	sdl.SCANCODE_LSHIFT: {0, 0},
	sdl.SCANCODE_RSHIFT: {0, 0},
	sdl.SCANCODE_LCTRL:  {0, 1},
}
