// Package platform provides the desktop window the quadframe command draws
// into. Windows are created through GLFW without a client API, so the GPU
// surface is built directly from the native handles.
//
// GLFW must be driven from the main OS thread; callers lock it before
// calling [NewWindow].
package platform
