// Package toast provides feedback notifications for weblisk applications.
//
// Toasts ride the connection's ordinary push channel as frames of type
// "weblisk:toast". No new protocol surface is added; the embedded client
// hands non-protocol frame types to its message listeners, so users wire
// up any toast UI they like.
//
// # Client-Side Handler
//
// The handler is user-defined, allowing integration with any toast
// library:
//
//	weblisk.on('message', function (msg) {
//	    if (msg.type !== 'weblisk:toast') return;
//	    showCustomToast(msg.level, msg.message, msg.title);
//	});
//
// # Server-Side Usage
//
// In event handlers, push to the originating tab:
//
//	func deleteProject(ctx context.Context, payload any, conn *server.Connection) (any, error) {
//	    if err := store.Delete(id); err != nil {
//	        toast.Error(conn, "Failed to delete project")
//	        return nil, err
//	    }
//	    toast.Success(conn, "Project deleted")
//	    return map[string]any{"deleted": id}, nil
//	}
//
// Wider audiences go through the app's fan-out senders:
//
//	toast.ToSession(app, conn.SessionID, toast.TypeInfo, "Signed in on another tab")
//	toast.Broadcast(app, toast.TypeWarning, "Maintenance in 5 minutes")
package toast
